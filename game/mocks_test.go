package game

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- QuestionSource ---

type MockQuestionSource struct {
	mock.Mock
}

func (m *MockQuestionSource) Next(ctx context.Context, previousTopics []string) (*Question, error) {
	args := m.Called(ctx, previousTopics)
	q, _ := args.Get(0).(*Question)
	return q, args.Error(1)
}

// --- DistractorGenerator ---

type MockDistractorGenerator struct {
	mock.Mock
}

func (m *MockDistractorGenerator) Generate(ctx context.Context, q Question) (string, error) {
	args := m.Called(ctx, q)
	return args.String(0), args.Error(1)
}

// --- AnswerValidator ---

type MockAnswerValidator struct {
	mock.Mock
}

func (m *MockAnswerValidator) Check(ctx context.Context, text string, q Question) (ValidationResult, error) {
	args := m.Called(ctx, text, q)
	return args.Get(0).(ValidationResult), args.Error(1)
}

// --- UniqueCodeGenerator ---

type MockUniqueCodeGenerator struct {
	mock.Mock
}

func (m *MockUniqueCodeGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockUniqueCodeGenerator) Dispose(code string) {
	m.Called(code)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// --- Lobby ---

type MockLobby struct {
	mock.Mock
}

func (m *MockLobby) RemoveRoom(code string) {
	m.Called(code)
}

// --- NetworkSession ---

// fakeSession records everything the room writes so tests can assert on the
// decoded server messages. Guarded by a mutex so it can also sit behind a
// running actor goroutine.
type fakeSession struct {
	mu          sync.Mutex
	writes      [][]byte
	pings       int
	closed      bool
	closeReason string
}

func (f *fakeSession) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeSession) Read() ([]byte, error) { return nil, io.EOF }

func (f *fakeSession) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeSession) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeReason = reason
}

func (f *fakeSession) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeSession) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSession) messages(t *testing.T) []ServerMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ServerMessage, 0, len(f.writes))
	for _, raw := range f.writes {
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg)
	}
	return out
}

func (f *fakeSession) lastState(t *testing.T) *GameState {
	t.Helper()
	msgs := f.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == MsgStateUpdate {
			return msgs[i].State
		}
	}
	t.Fatal("no state-update received")
	return nil
}

func (f *fakeSession) lastError(t *testing.T) string {
	t.Helper()
	msgs := f.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == MsgError {
			return msgs[i].Message
		}
	}
	return ""
}

func (f *fakeSession) countType(t *testing.T, msgType string) int {
	t.Helper()
	n := 0
	for _, msg := range f.messages(t) {
		if msg.Type == msgType {
			n++
		}
	}
	return n
}
