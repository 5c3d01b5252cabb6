package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type eventRecorder struct {
	mu          sync.Mutex
	connects    []string
	disconnects []string
}

func (r *eventRecorder) HandleConnect(identity string) {
	r.mu.Lock()
	r.connects = append(r.connects, identity)
	r.mu.Unlock()
}

func (r *eventRecorder) HandleDisconnect(identity string) {
	r.mu.Lock()
	r.disconnects = append(r.disconnects, identity)
	r.mu.Unlock()
}

func (r *eventRecorder) disconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.disconnects)
}

// A charger that reconnects while its previous socket is still half-open gets
// a fresh registry entry; the old socket's eventual teardown must not evict it
// or report the charger as gone.
func TestStaleTeardownKeepsReplacementRegistered(t *testing.T) {
	manager := NewManager(time.Second)
	events := &eventRecorder{}
	server := NewServer(manager, nil, events, time.Second, zap.NewNop())

	stale := NewConnection("cp-1", nil, nil, time.Second, zap.NewNop(), nil)
	manager.Add(stale)
	replacement := NewConnection("cp-1", nil, nil, time.Second, zap.NewNop(), nil)
	manager.Add(replacement)

	server.dropConnection(stale)

	if !manager.Connected("cp-1") {
		t.Fatalf("replacement connection unregistered by stale teardown")
	}
	if n := events.disconnectCount(); n != 0 {
		t.Fatalf("stale teardown raised %d disconnect events", n)
	}

	server.dropConnection(replacement)

	if manager.Connected("cp-1") {
		t.Fatalf("current connection still registered after teardown")
	}
	if n := events.disconnectCount(); n != 1 {
		t.Fatalf("expected 1 disconnect event, got %d", n)
	}
}

func TestRemoveReportsCurrentEntryOnly(t *testing.T) {
	manager := NewManager(time.Second)

	old := NewConnection("cp-2", nil, nil, time.Second, zap.NewNop(), nil)
	manager.Add(old)
	current := NewConnection("cp-2", nil, nil, time.Second, zap.NewNop(), nil)
	manager.Add(current)

	if manager.Remove(old) {
		t.Fatalf("Remove evicted a replaced connection")
	}
	if !manager.Connected("cp-2") {
		t.Fatalf("identity lost its live connection")
	}
	if !manager.Remove(current) {
		t.Fatalf("Remove refused the current connection")
	}
	if manager.Connected("cp-2") {
		t.Fatalf("identity still connected after removal")
	}
}
