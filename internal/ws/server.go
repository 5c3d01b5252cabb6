package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SessionEvents is notified when a charger connects or drops; implemented by
// the charge control engine.
type SessionEvents interface {
	HandleConnect(identity string)
	HandleDisconnect(identity string)
}

// Server upgrades HTTP connections to WebSockets for OCPP. The charger
// identity is the trailing path segment, as sent by the charge point in its
// connection URL.
type Server struct {
	manager      *Manager
	processor    MessageProcessor
	events       SessionEvents
	logger       *zap.Logger
	writeTimeout time.Duration
	pathPrefix   string
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(manager *Manager, processor MessageProcessor, events SessionEvents, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		manager:      manager,
		processor:    processor,
		events:       events,
		logger:       logger,
		writeTimeout: writeTimeout,
		pathPrefix:   "/ocpp/",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"ocpp1.6"},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for the /ocpp/{identity} endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity := strings.Trim(strings.TrimPrefix(r.URL.Path, s.pathPrefix), "/")
	if identity == "" {
		http.Error(w, "charger identity is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(identity, conn, s.processor, s.writeTimeout, s.logger, func(c *Connection) {
		s.dropConnection(c)
		cancel()
	})
	s.manager.Add(connection)
	s.events.HandleConnect(identity)

	go connection.Start(ctx)
	s.logger.Info("charger connection established",
		zap.String("identity", identity), zap.String("remote", r.RemoteAddr))
}

// dropConnection runs on connection teardown. The disconnect event fires only
// when the closing connection is still the registered one: a stale socket
// superseded by a reconnect must not mark the replacement as gone.
func (s *Server) dropConnection(conn *Connection) {
	if s.manager.Remove(conn) {
		s.events.HandleDisconnect(conn.Identity())
	}
}
