package net

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/config"
)

var sessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "emberwake",
	Subsystem: "net",
	Name:      "sessions_open",
	Help:      "WebSocket sessions currently open.",
})

// Accounts is the slice of persistence the HTTP handlers need.
type Accounts interface {
	// Create registers a new account; returns 0 when the username is taken
	// or the credentials fail validation.
	Create(ctx context.Context, username, password string) (int64, error)
	// Authenticate returns 0 on bad credentials.
	Authenticate(ctx context.Context, username, password string) (int64, error)
}

// Server terminates HTTP and WebSocket traffic. New sessions are handed to
// the game loop through a channel; the loop owns all game state.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	signer   *Signer
	accounts Accounts
	cfg      config.NetworkConfig

	nextID   atomic.Uint64
	newConns chan *Session
	dead     chan *Session

	log *zap.Logger
}

func NewServer(cfg config.NetworkConfig, accounts Accounts, log *zap.Logger) (*Server, error) {
	signer, err := NewSigner()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxCommandLen,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		signer:   signer,
		accounts: accounts,
		cfg:      cfg,
		newConns: make(chan *Session, 64),
		dead:     make(chan *Session, 64),
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /game/create", s.handleCreate)
	mux.HandleFunc("POST /game/login", s.handleLogin)
	mux.HandleFunc("POST /game/logout", s.handleLogout)
	mux.HandleFunc("GET /game/auth", s.handleAuth)
	mux.HandleFunc("GET /game/session", s.handleSession)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Handler:     mux,
		ReadTimeout: cfg.ReadTimeout,
	}
	return s, nil
}

// Serve blocks on the HTTP listener. Returns nil after Shutdown.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}

// NewSessions returns the channel of freshly authenticated sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// DeadSessions returns the channel of sessions whose socket has dropped.
func (s *Server) DeadSessions() <-chan *Session {
	return s.dead
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing credentials", http.StatusBadRequest)
		return
	}
	id, err := s.accounts.Create(r.Context(), username, password)
	if err != nil {
		s.log.Error("account create failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if id == 0 {
		http.Error(w, "invalid or taken username", http.StatusConflict)
		return
	}
	s.log.Info("account created", zap.String("username", username))
	s.setAuthCookie(w, id, username)
	writeJSON(w, map[string]string{"username": username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing credentials", http.StatusBadRequest)
		return
	}
	id, err := s.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		s.log.Error("login failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if id == 0 {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
		return
	}
	s.setAuthCookie(w, id, username)
	writeJSON(w, map[string]string{"username": username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	_, username, ok := s.verifyCookie(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"username": username})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	accountID, username, ok := s.verifyCookie(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := newSession(conn, id, accountID, username, s.cfg.InQueueSize,
		s.cfg.WriteTimeout, s.notifyDead, s.log)
	sess.start()
	sessionsOpen.Inc()
	s.log.Info("session opened",
		zap.Uint64("session", id), zap.String("username", username))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("session queue full, rejecting connection")
		sess.Close()
	}
}

func (s *Server) notifyDead(sess *Session) {
	sessionsOpen.Dec()
	select {
	case s.dead <- sess:
	default:
		s.log.Warn("dead session queue full", zap.Uint64("session", sess.ID))
	}
}

func (s *Server) setAuthCookie(w http.ResponseWriter, accountID int64, username string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.signer.Sign(accountID, username),
		Path:     "/",
		HttpOnly: true,
	})
}

func (s *Server) verifyCookie(r *http.Request) (int64, string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return 0, "", false
	}
	return s.signer.Verify(c.Value)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
