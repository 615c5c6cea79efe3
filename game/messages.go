package game

import "encoding/json"

// Inbound event types.
const (
	MsgJoin         = "join"
	MsgStartGame    = "start-game"
	MsgSubmitAnswer = "submit-answer"
	MsgSubmitVote   = "submit-vote"
	MsgNextRound    = "next-round"
	MsgPlayAgain    = "play-again"
	MsgLeave        = "leave"
	MsgKickPlayer   = "kick-player"
	MsgSkipTimer    = "skip-timer"
)

// Outbound event types.
const (
	MsgStateUpdate  = "state-update"
	MsgError        = "error"
	MsgPlayerJoined = "player-joined"
	MsgPlayerLeft   = "player-left"
	MsgTimeUpdate   = "time-update"
	MsgDebugLog     = "debug-log"
)

// ClientMessage is the inbound envelope. Fields are populated per Type.
type ClientMessage struct {
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	IsHost   bool    `json:"isHost,omitempty"`
	Config   *Config `json:"config,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	AnswerID string  `json:"answerId,omitempty"`
	PlayerID string  `json:"playerId,omitempty"`
}

// ServerMessage is the outbound envelope. Exactly one payload field is set
// per Type.
type ServerMessage struct {
	Type          string     `json:"type"`
	State         *GameState `json:"state,omitempty"`
	Message       string     `json:"message,omitempty"`
	Player        *Player    `json:"player,omitempty"`
	PlayerID      string     `json:"playerId,omitempty"`
	TimeRemaining *int       `json:"timeRemaining,omitempty"`
}

func marshalStateUpdate(state *GameState) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgStateUpdate, State: state})
}

func marshalError(message string) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgError, Message: message})
}

func marshalPlayerJoined(p *Player) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgPlayerJoined, Player: p})
}

func marshalPlayerLeft(playerID string) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgPlayerLeft, PlayerID: playerID})
}

func marshalTimeUpdate(remaining int) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgTimeUpdate, TimeRemaining: &remaining})
}

func marshalDebugLog(message string) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MsgDebugLog, Message: message})
}
