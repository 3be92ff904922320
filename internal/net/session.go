package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxCommandLen caps a single inbound text frame.
const maxCommandLen = 1024

// Session is one WebSocket connection bound to an account. Network I/O
// runs in dedicated goroutines; the game loop reads commands from InQueue
// and pushes update frames through Send.
type Session struct {
	ID        uint64
	AccountID int64
	Username  string

	conn *websocket.Conn

	InQueue  chan string // game loop reads command lines from here
	outQueue chan []byte // writer goroutine reads frames from here

	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	onDead func(*Session)

	log *zap.Logger
}

func newSession(conn *websocket.Conn, id uint64, accountID int64, username string, inSize int, writeTimeout time.Duration, onDead func(*Session), log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		AccountID:    accountID,
		Username:     username,
		conn:         conn,
		InQueue:      make(chan string, inSize),
		outQueue:     make(chan []byte, 256),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		onDead:       onDead,
		log:          log.With(zap.Uint64("session", id), zap.String("account", username)),
	}
}

func (s *Session) start() {
	s.conn.SetReadLimit(maxCommandLen)
	go s.readLoop()
	go s.writeLoop()
}

func (s *Session) readLoop() {
	defer func() {
		s.Close()
		if s.onDead != nil {
			s.onDead(s)
		}
	}()
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case s.InQueue <- string(data):
		default:
			s.log.Warn("input queue full, dropping command")
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.outQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.Close()
				return
			}
		case <-s.closeCh:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues one update frame without blocking the tick loop. Frames are
// dropped when the client cannot keep up.
func (s *Session) Send(frame []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.outQueue <- frame:
	default:
		s.log.Warn("output queue full, dropping frame")
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

// Closed reports whether the session has shut down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}
