package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = time.Minute
	closeGraceWait  = 20 * time.Second
	sessionSendSize = 256
)

// wsSession adapts a gorilla connection to NetworkSession. Writes go through
// a buffered outbox drained by a single pump goroutine, so the room actor
// never blocks on a slow client; a client that can't keep up loses frames
// rather than stalling the room.
type wsSession struct {
	conn      *websocket.Conn
	outbox    chan []byte
	pingReqs  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebsocketSession(conn *websocket.Conn) *wsSession {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	s := &wsSession{
		conn:     conn,
		outbox:   make(chan []byte, sessionSendSize),
		pingReqs: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.writePump()
	return s
}

func (s *wsSession) Write(data []byte) error {
	select {
	case s.outbox <- data:
		return nil
	case <-s.done:
		return ErrSendBufferFull
	default:
		return ErrSendBufferFull
	}
}

func (s *wsSession) Ping() error {
	select {
	case s.pingReqs <- struct{}{}:
	default:
	}
	return nil
}

func (s *wsSession) Read() ([]byte, error) {
	_, p, err := s.conn.ReadMessage()
	return p, err
}

func (s *wsSession) Close(reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.SetWriteDeadline(time.Now().Add(closeGraceWait))
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		s.conn.Close()
	})
}

func (s *wsSession) writePump() {
	for {
		select {
		case data := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.pingReqs:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
