package game

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type lobbyFixture struct {
	lobby   *lobby
	ticks   chan time.Time
	pings   chan time.Time
	codegen *MockUniqueCodeGenerator
}

func newLobbyFixture(t *testing.T) *lobbyFixture {
	t.Helper()

	f := &lobbyFixture{
		ticks:   make(chan time.Time),
		pings:   make(chan time.Time),
		codegen: &MockUniqueCodeGenerator{},
	}

	tickerCreator := &MockPeriodicTickerChannelCreator{}
	tickerCreator.On("Create", time.Second).Return(f.ticks)
	tickerCreator.On("Create", 30*time.Second).Return(f.pings)

	questions := &MockQuestionSource{}
	questions.On("Next", mock.Anything, mock.Anything).Return(&Question{ID: "q", CorrectAnswer: "Dentist"}, nil).Maybe()
	distractors := &MockDistractorGenerator{}
	distractors.On("Generate", mock.Anything, mock.Anything).Return("Factory", nil).Maybe()
	validator := &MockAnswerValidator{}
	validator.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(ValidationResult{Valid: true}, nil).Maybe()

	f.lobby = NewLobby(f.codegen, tickerCreator, questions, distractors, validator, zerolog.Nop())

	started := make(chan struct{})
	go f.lobby.LobbyActor(started)
	<-started
	return f
}

func TestLobbyCreateAndLookup(t *testing.T) {
	t.Parallel()
	f := newLobbyFixture(t)
	f.codegen.On("Generate").Return("GLHF").Once()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	room, err := f.lobby.CreateRoom(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GLHF", room.Code())

	found, err := f.lobby.LookupRoom(ctx, "GLHF")
	require.NoError(t, err)
	assert.Same(t, room, found)

	_, err = f.lobby.LookupRoom(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLobbyRemoveRoomReleasesCode(t *testing.T) {
	t.Parallel()
	f := newLobbyFixture(t)
	f.codegen.On("Generate").Return("GLHF").Once()

	disposed := make(chan struct{})
	f.codegen.On("Dispose", "GLHF").Run(func(mock.Arguments) { close(disposed) }).Once()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	room, err := f.lobby.CreateRoom(ctx)
	require.NoError(t, err)

	f.lobby.RemoveRoom("GLHF")
	select {
	case <-disposed:
	case <-time.After(time.Second):
		t.Fatal("code was never disposed")
	}

	_, err = f.lobby.LookupRoom(ctx, "GLHF")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// The room actor was told to shut down.
	select {
	case <-room.done:
	case <-time.After(time.Second):
		t.Fatal("room was never released")
	}
}

func TestLobbyRemoveUnknownRoomIsNoop(t *testing.T) {
	t.Parallel()
	f := newLobbyFixture(t)

	f.lobby.RemoveRoom("ZZZZ")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.lobby.LookupRoom(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	f.codegen.AssertNotCalled(t, "Dispose", "ZZZZ")
}

func TestLobbyFansPingsOutToRooms(t *testing.T) {
	t.Parallel()
	f := newLobbyFixture(t)
	f.codegen.On("Generate").Return("GLHF").Once()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	room, err := f.lobby.CreateRoom(ctx)
	require.NoError(t, err)

	// Seat a player through the running actor so the room has someone to
	// ping.
	s := &fakeSession{}
	room.Attach(ctx, s)
	room.inbox <- commandEnvelope{msg: ClientMessage{Type: MsgJoin, Name: "Host", IsHost: true}, from: s}
	require.Eventually(t, func() bool { return s.writeCount() >= 2 }, time.Second, 5*time.Millisecond, "join never processed")

	f.pings <- time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	assert.Eventually(t, func() bool { return s.pingCount() >= 1 }, time.Second, 5*time.Millisecond, "ping never reached the player")
}

func TestLobbyCreateRoomHonorsContext(t *testing.T) {
	t.Parallel()
	f := newLobbyFixture(t)
	f.codegen.On("Generate").Return("XXXX").Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Cancelled before the request is even queued; depending on scheduling
	// the actor may still win the race and serve it, but the call must
	// return promptly either way.
	_, err := f.lobby.CreateRoom(ctx)
	if err == nil {
		t.Skip("actor served the request before cancellation was observed")
	}
	assert.ErrorIs(t, err, context.Canceled)
}
