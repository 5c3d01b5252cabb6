package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"chargepilot/internal/service"
)

type memoryBackend struct {
	records map[string][]byte
	writes  int
	readErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{records: make(map[string][]byte)}
}

func (m *memoryBackend) WriteSnapshot(ctx context.Context, records map[string][]byte) error {
	m.writes++
	m.records = make(map[string][]byte, len(records))
	for k, v := range records {
		m.records[k] = v
	}
	return nil
}

func (m *memoryBackend) ReadSnapshot(ctx context.Context) (map[string][]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.records, nil
}

func populatedStore(t *testing.T) *service.Store {
	t.Helper()
	store := service.NewStore()

	store.Connect("cp-1")
	id, err := store.StartTransaction("cp-1", time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("start transaction: %v", err)
	}
	if err := store.RecordMeterValues("cp-1", []json.RawMessage{json.RawMessage(`{"wh":100}`)}); err != nil {
		t.Fatalf("record meter values: %v", err)
	}
	if err := store.StopTransaction("cp-1", id, time.Date(2025, 1, 6, 5, 0, 0, 0, time.UTC), nil); err != nil {
		t.Fatalf("stop transaction: %v", err)
	}

	store.Connect("cp-2")
	return store
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	backend := newMemoryBackend()
	gateway := NewGateway(backend, zap.NewNop())
	store := populatedStore(t)

	if err := gateway.Snapshot(context.Background(), store); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restoredStore := service.NewStore()
	restoredGateway := NewGateway(backend, zap.NewNop())
	if err := restoredGateway.Restore(context.Background(), restoredStore); err != nil {
		t.Fatalf("restore: %v", err)
	}

	original, _ := store.Snapshot("cp-1")
	restored, err := restoredStore.Snapshot("cp-1")
	if err != nil {
		t.Fatalf("restored session missing: %v", err)
	}
	if restored.Connected {
		t.Fatalf("restored session must be disconnected")
	}
	if restored.LastTransactionID != original.LastTransactionID {
		t.Fatalf("last transaction id lost")
	}
	if restored.LastTransaction == nil || len(restored.LastTransaction.MeterValues) != 1 {
		t.Fatalf("last transaction record lost: %+v", restored.LastTransaction)
	}
	if len(restored.Transactions) != len(original.Transactions) {
		t.Fatalf("transactions lost")
	}
	if _, err := restoredStore.Snapshot("cp-2"); err != nil {
		t.Fatalf("second session missing: %v", err)
	}
}

func TestSnapshotWritesOnce(t *testing.T) {
	backend := newMemoryBackend()
	gateway := NewGateway(backend, zap.NewNop())
	store := service.NewStore()

	if err := gateway.Snapshot(context.Background(), store); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := gateway.Snapshot(context.Background(), store); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if backend.writes != 1 {
		t.Fatalf("expected one write, got %d", backend.writes)
	}
}

func TestRestoreCorruptRecordFails(t *testing.T) {
	backend := newMemoryBackend()
	backend.records["cp-1"] = []byte(`{not json`)
	gateway := NewGateway(backend, zap.NewNop())

	if err := gateway.Restore(context.Background(), service.NewStore()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRestoreBackendFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.readErr = errors.New("connection refused")
	gateway := NewGateway(backend, zap.NewNop())

	if err := gateway.Restore(context.Background(), service.NewStore()); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestRestoreEmptyBackend(t *testing.T) {
	gateway := NewGateway(newMemoryBackend(), zap.NewNop())
	store := service.NewStore()

	if err := gateway.Restore(context.Background(), store); err != nil {
		t.Fatalf("empty restore must succeed: %v", err)
	}
	if len(store.Identities()) != 0 {
		t.Fatalf("unexpected sessions after empty restore")
	}
}
