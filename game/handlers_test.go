package game

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHandlerServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	questions := &MockQuestionSource{}
	questions.On("Next", mock.Anything, mock.Anything).Return(&Question{ID: "q", CorrectAnswer: "Dentist"}, nil).Maybe()
	distractors := &MockDistractorGenerator{}
	distractors.On("Generate", mock.Anything, mock.Anything).Return("Factory", nil).Maybe()
	validator := &MockAnswerValidator{}
	validator.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(ValidationResult{Valid: true}, nil).Maybe()

	tickerGen := NewTickerGen()
	l := NewLobby(NewCodeGen(), &tickerGen, questions, distractors, validator, zerolog.Nop())
	started := make(chan struct{})
	go l.LobbyActor(started)
	<-started

	h := NewGameHandler(l, "https://fibbage.example.com/", zerolog.Nop())
	router := gin.New()
	router.GET("/rooms/create", h.CreateRoomHandler)
	router.GET("/rooms/:code/join", h.JoinRoomHandler)
	router.GET("/rooms/:code/qr", h.RoomQRHandler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestCreateAndJoinOverWebsocket(t *testing.T) {
	srv := newHandlerServer(t)

	host := dialWS(t, srv, "/rooms/create")
	snapshot := readUntil(t, host, MsgStateUpdate)
	require.NotNil(t, snapshot.State)
	code := snapshot.State.RoomCode
	require.Len(t, code, 4)
	assert.Equal(t, PhaseLobby, snapshot.State.Phase)

	require.NoError(t, host.WriteJSON(ClientMessage{Type: MsgJoin, Name: "Host", IsHost: true}))
	joined := readUntil(t, host, MsgPlayerJoined)
	require.NotNil(t, joined.Player)
	assert.Equal(t, "Host", joined.Player.Name)
	assert.True(t, joined.Player.IsHost)

	// A second client joins by code, lowercased to prove normalization.
	player := dialWS(t, srv, "/rooms/"+strings.ToLower(code)+"/join")
	snapshot = readUntil(t, player, MsgStateUpdate)
	require.NotNil(t, snapshot.State)
	require.NoError(t, player.WriteJSON(ClientMessage{Type: MsgJoin, Name: "Ada"}))
	readUntil(t, player, MsgPlayerJoined)

	// Both ends converge on a two-player lobby.
	for {
		state := readUntil(t, host, MsgStateUpdate).State
		require.NotNil(t, state)
		if len(state.Players) == 2 {
			break
		}
	}
}

func TestJoinUnknownRoomReportsOverSocket(t *testing.T) {
	srv := newHandlerServer(t)

	conn := dialWS(t, srv, "/rooms/ZZZZ/join")
	msg := readUntil(t, conn, MsgError)
	assert.Equal(t, "Room not found", msg.Message)
}

func TestRoomQRHandler(t *testing.T) {
	srv := newHandlerServer(t)

	host := dialWS(t, srv, "/rooms/create")
	code := readUntil(t, host, MsgStateUpdate).State.RoomCode

	resp, err := http.Get(srv.URL + "/rooms/" + code + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/rooms/ZZZZ/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
