package game

import "errors"

var (
	ErrRoomNotFound   = errors.New("room-not-found")
	ErrRoomFull       = errors.New("room-full")
	ErrGameInProgress = errors.New("game-in-progress")
	ErrNameTaken      = errors.New("name-taken")
	ErrNameRequired   = errors.New("name-required")
	ErrNoHost         = errors.New("room-has-no-host")
	ErrLobbyClosed    = errors.New("lobby-closed")
)

var ErrSendBufferFull = errors.New("send-buffer-full")
