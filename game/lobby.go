package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type createRoomRequest struct {
	resp chan *Room
}

type lookupRoomRequest struct {
	code string
	resp chan *Room
}

// lobby owns the rooms map. One goroutine (LobbyActor) serves every request
// and fans the shared tickers out to each room, so the map is never locked.
type lobby struct {
	rooms map[string]*Room
	log   zerolog.Logger

	codegen       UniqueCodeGenerator
	tickerCreator PeriodicTickerChannelCreator
	questions     QuestionSource
	distractors   DistractorGenerator
	validator     AnswerValidator

	createReqs     chan createRoomRequest
	lookupReqs     chan lookupRoomRequest
	removeRoomChan chan string
}

func NewLobby(codegen UniqueCodeGenerator, tickerCreator PeriodicTickerChannelCreator, questions QuestionSource, distractors DistractorGenerator, validator AnswerValidator, log zerolog.Logger) *lobby {
	return &lobby{
		rooms:          map[string]*Room{},
		log:            log,
		codegen:        codegen,
		tickerCreator:  tickerCreator,
		questions:      questions,
		distractors:    distractors,
		validator:      validator,
		createReqs:     make(chan createRoomRequest, 32),
		lookupReqs:     make(chan lookupRoomRequest, 256),
		removeRoomChan: make(chan string, 32),
	}
}

// CreateRoom allocates a code, starts the room actor and returns the room.
func (l *lobby) CreateRoom(ctx context.Context) (*Room, error) {
	req := createRoomRequest{resp: make(chan *Room, 1)}
	select {
	case l.createReqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case room := <-req.resp:
		return room, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LookupRoom resolves a join code to its live room.
func (l *lobby) LookupRoom(ctx context.Context, code string) (*Room, error) {
	req := lookupRoomRequest{code: code, resp: make(chan *Room, 1)}
	select {
	case l.lookupReqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case room := <-req.resp:
		if room == nil {
			return nil, ErrRoomNotFound
		}
		return room, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RemoveRoom is called by an empty room (and by nobody else).
func (l *lobby) RemoveRoom(code string) {
	l.removeRoomChan <- code
}

func (l *lobby) LobbyActor(started chan struct{}) {
	ticker := l.tickerCreator.Create(time.Second)
	pingTicker := l.tickerCreator.Create(30 * time.Second)

	close(started)

	for {
		select {
		case now := <-ticker:
			for _, r := range l.rooms {
				r.Tick(now)
			}
		case <-pingTicker:
			for _, r := range l.rooms {
				r.PingPlayers()
			}
		case req := <-l.createReqs:
			l.handleCreateRoom(req)
		case req := <-l.lookupReqs:
			req.resp <- l.rooms[req.code]
		case code := <-l.removeRoomChan:
			l.handleRemoveRoom(code)
		}
	}
}

func (l *lobby) handleCreateRoom(req createRoomRequest) {
	code := l.codegen.Generate()
	room := NewRoom(code, l.questions, l.distractors, l.validator, l.log)
	room.SetParentLobby(l)
	l.rooms[code] = room
	go room.GameLoop()
	l.log.Info().Str("room", code).Int("rooms", len(l.rooms)).Msg("room created")
	req.resp <- room
}

func (l *lobby) handleRemoveRoom(code string) {
	room, ok := l.rooms[code]
	if !ok {
		return
	}
	delete(l.rooms, code)
	room.CloseAndRelease()
	l.codegen.Dispose(code)
	l.log.Info().Str("room", code).Int("rooms", len(l.rooms)).Msg("room released")
}
