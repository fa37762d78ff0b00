package socketio

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	socket "github.com/zishang520/socket.io/socket"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/middleware"
	jwtutil "github.com/leap-learning/leap-server/internal/utils/jwt"
)

var (
	errMissingToken = errors.New("missing authentication token")
	errUserNotFound = errors.New("user not found")
)

// Server wraps the Socket.IO server. Every authenticated socket joins its
// user's room and receives the events published through Notify.
type Server struct {
	io        *socket.Server
	db        *gorm.DB
	logger    *slog.Logger
	jwtSecret string

	connMutex   sync.RWMutex
	connections map[string]uuid.UUID
}

var _ Notifier = (*Server)(nil)

// NewServer creates a new Socket.IO server.
func NewServer(db *gorm.DB, logger *slog.Logger, jwtSecret string) *Server {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(60 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetServeClient(false)
	opts.SetPath("/socket.io")

	s := &Server{
		io:          socket.NewServer(nil, opts),
		db:          db,
		logger:      logger,
		jwtSecret:   jwtSecret,
		connections: make(map[string]uuid.UUID),
	}
	s.setupEventHandlers()
	return s
}

// GetHandler returns the HTTP handler for Socket.IO.
func (s *Server) GetHandler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Close shuts down the Socket.IO server.
func (s *Server) Close() error {
	done := make(chan struct{})
	s.io.Close(func() {
		close(done)
	})
	<-done
	return nil
}

// Notify emits an event to every socket of a user.
func (s *Server) Notify(userID uuid.UUID, event string, payload any) {
	if err := s.io.To(userRoom(userID)).Emit(event, payload); err != nil {
		s.logger.Warn("failed to emit socket event",
			slog.String("event", event),
			slog.String("userId", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Connections reports how many sockets are connected.
func (s *Server) Connections() int {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	return len(s.connections)
}

func (s *Server) setupEventHandlers() {
	s.io.Use(s.connectionMiddleware)
	s.io.On("connection", func(args ...any) {
		sock, ok := args[0].(*socket.Socket)
		if !ok {
			s.logger.Error("unexpected connection payload", slog.Any("payload", args))
			return
		}
		s.handleConnection(sock)
	})
}

func (s *Server) connectionMiddleware(sock *socket.Socket, next func(*socket.ExtendedError)) {
	usr, err := s.authenticate(extractToken(sock))
	if err != nil {
		code := "INVALID_TOKEN"
		switch {
		case errors.Is(err, errMissingToken):
			code = "MISSING_TOKEN"
		case errors.Is(err, errUserNotFound):
			code = "USER_NOT_FOUND"
		}
		s.logger.Warn("socket connection rejected", slog.String("code", code), slog.String("error", err.Error()))
		next(socket.NewExtendedError(err.Error(), map[string]any{"code": code}))
		return
	}

	sock.SetData(usr)
	next(nil)
}

// authenticate resolves an access token to its user.
func (s *Server) authenticate(token string) (*middleware.User, error) {
	if token == "" {
		return nil, errMissingToken
	}
	claims, err := jwtutil.VerifyPurpose(token, s.jwtSecret, jwtutil.PurposeAccess)
	if err != nil {
		return nil, err
	}

	var usr middleware.User
	if err := s.db.First(&usr, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &usr, nil
}

func (s *Server) handleConnection(sock *socket.Socket) {
	usr, ok := sock.Data().(*middleware.User)
	if !ok || usr == nil {
		s.logger.Error("connection established without user context")
		sock.Disconnect(true)
		return
	}

	id := string(sock.Id())
	s.connMutex.Lock()
	s.connections[id] = usr.ID
	s.connMutex.Unlock()

	s.logger.Info("WebSocket connected",
		slog.String("userId", usr.ID.String()),
		slog.String("connId", id),
	)

	sock.Join(userRoom(usr.ID))
	if err := sock.Emit("connectionConfirmed", map[string]any{
		"userId":    usr.ID.String(),
		"userName":  usr.FullName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to emit connection confirmation", slog.String("error", err.Error()))
	}

	sock.On("disconnect", func(args ...any) {
		reason := ""
		if len(args) > 0 {
			reason, _ = args[0].(string)
		}
		s.connMutex.Lock()
		delete(s.connections, id)
		s.connMutex.Unlock()
		s.logger.Info("WebSocket disconnected",
			slog.String("userId", usr.ID.String()),
			slog.String("reason", reason),
		)
	})
}

func extractToken(sock *socket.Socket) string {
	if sock == nil {
		return ""
	}

	if hs := sock.Handshake(); hs != nil {
		if authMap, ok := hs.Auth.(map[string]any); ok {
			if token, ok := authMap["token"].(string); ok && token != "" {
				return token
			}
		}
		if hs.Query != nil {
			if token, ok := hs.Query.Get("token"); ok && token != "" {
				return token
			}
		}
	}
	return ""
}

func userRoom(userID uuid.UUID) socket.Room {
	return socket.Room("user_" + userID.String())
}
