package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chargepilot/internal/service"
)

// Backend is the durable medium a snapshot is written to: one opaque record
// per charger identity.
type Backend interface {
	WriteSnapshot(ctx context.Context, records map[string][]byte) error
	ReadSnapshot(ctx context.Context) (map[string][]byte, error)
}

// Gateway serializes session state to a backend on shutdown and restores it
// on startup. Timer handles and the connection flag are never persisted; the
// session's JSON shape already excludes them.
type Gateway struct {
	backend Backend
	logger  *zap.Logger
	once    sync.Once
}

// NewGateway builds gateway.
func NewGateway(backend Backend, logger *zap.Logger) *Gateway {
	return &Gateway{backend: backend, logger: logger}
}

// Snapshot writes the store's sessions to the backend. Guarded so stacked
// shutdown signals cannot double-write.
func (g *Gateway) Snapshot(ctx context.Context, store *service.Store) error {
	var err error
	g.once.Do(func() {
		err = g.write(ctx, store)
	})
	return err
}

func (g *Gateway) write(ctx context.Context, store *service.Store) error {
	sessions := store.Export()
	records := make(map[string][]byte, len(sessions))
	for _, sess := range sessions {
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("persist: encode session %s: %w", sess.Identity, err)
		}
		records[sess.Identity] = data
	}

	if err := g.backend.WriteSnapshot(ctx, records); err != nil {
		return fmt.Errorf("persist: write snapshot: %w", err)
	}
	g.logger.Info("session snapshot written", zap.Int("sessions", len(records)))
	return nil
}

// Restore seeds the store with disconnected placeholder sessions from the
// last snapshot. Corrupt records abort startup; an empty backend is normal.
func (g *Gateway) Restore(ctx context.Context, store *service.Store) error {
	records, err := g.backend.ReadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("persist: read snapshot: %w", err)
	}

	sessions := make([]*service.Session, 0, len(records))
	for identity, data := range records {
		var sess service.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("persist: decode session %s: %w", identity, err)
		}
		if sess.Identity == "" {
			sess.Identity = identity
		}
		sessions = append(sessions, &sess)
	}

	store.Seed(sessions)
	if len(sessions) > 0 {
		g.logger.Info("session snapshot restored", zap.Int("sessions", len(sessions)))
	}
	return nil
}
