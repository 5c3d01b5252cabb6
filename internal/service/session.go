package service

import (
	"encoding/json"
	"time"
)

// Meter-value abridgement bounds for display: records above the threshold are
// presented as the first head entries plus the last tail entries.
const (
	abridgeThreshold = 100
	abridgeHead      = 75
	abridgeTail      = 25
)

// StatusRecord is one entry in a session's append-only status log.
type StatusRecord struct {
	Status     string    `json:"status"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Info       string    `json:"info,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// TransactionRecord is one charging event. MeterValues is append-only and
// opaque to the engine.
type TransactionRecord struct {
	ID          int               `json:"id"`
	StartedAt   time.Time         `json:"startedAt"`
	StoppedAt   *time.Time        `json:"stoppedAt,omitempty"`
	MeterValues []json.RawMessage `json:"meterValues"`
}

func (r *TransactionRecord) clone() *TransactionRecord {
	if r == nil {
		return nil
	}
	copied := &TransactionRecord{
		ID:        r.ID,
		StartedAt: r.StartedAt,
	}
	if r.StoppedAt != nil {
		stopped := *r.StoppedAt
		copied.StoppedAt = &stopped
	}
	if r.MeterValues != nil {
		copied.MeterValues = make([]json.RawMessage, len(r.MeterValues))
		copy(copied.MeterValues, r.MeterValues)
	}
	return copied
}

// Session is the in-memory state for one charger identity across its
// connection lifetime. Connected and the timer handles (owned by
// schedule.Timers) are transport concerns and are never persisted; the
// scheduled timestamps are advisory after a restore until re-confirmed by a
// fresh StatusNotification.
type Session struct {
	Identity            string                     `json:"identity"`
	Connected           bool                       `json:"-"`
	Status              string                     `json:"status,omitempty"`
	StatusHistory       []StatusRecord             `json:"statusHistory,omitempty"`
	ActiveTransactionID int                        `json:"activeTransactionId,omitempty"`
	LastTransactionID   int                        `json:"lastTransactionId,omitempty"`
	LastTransaction     *TransactionRecord         `json:"lastTransaction,omitempty"`
	Transactions        map[int]*TransactionRecord `json:"transactions,omitempty"`
	ScheduledStart      *time.Time                 `json:"scheduledStart,omitempty"`
	ScheduledStop       *time.Time                 `json:"scheduledStop,omitempty"`
}

// A zero transaction id means "none"; assigned ids start at 1.
func (s *Session) hasActiveTransaction() bool {
	return s.ActiveTransactionID != 0
}

func (s *Session) clone() *Session {
	copied := &Session{
		Identity:            s.Identity,
		Connected:           s.Connected,
		Status:              s.Status,
		ActiveTransactionID: s.ActiveTransactionID,
		LastTransactionID:   s.LastTransactionID,
		LastTransaction:     s.LastTransaction.clone(),
	}
	if s.StatusHistory != nil {
		copied.StatusHistory = make([]StatusRecord, len(s.StatusHistory))
		copy(copied.StatusHistory, s.StatusHistory)
	}
	if s.Transactions != nil {
		copied.Transactions = make(map[int]*TransactionRecord, len(s.Transactions))
		for id, tx := range s.Transactions {
			copied.Transactions[id] = tx.clone()
		}
	}
	if s.ScheduledStart != nil {
		at := *s.ScheduledStart
		copied.ScheduledStart = &at
	}
	if s.ScheduledStop != nil {
		at := *s.ScheduledStop
		copied.ScheduledStop = &at
	}
	return copied
}

// AbridgeTransaction returns a display copy of the record with its meter
// values bounded: above the threshold only the first 75 and last 25 samples
// are kept, in order. The stored record is untouched.
func AbridgeTransaction(tx *TransactionRecord) *TransactionRecord {
	if tx == nil {
		return nil
	}
	copied := tx.clone()
	if len(copied.MeterValues) <= abridgeThreshold {
		return copied
	}

	abridged := make([]json.RawMessage, 0, abridgeHead+abridgeTail)
	abridged = append(abridged, copied.MeterValues[:abridgeHead]...)
	abridged = append(abridged, copied.MeterValues[len(copied.MeterValues)-abridgeTail:]...)
	copied.MeterValues = abridged
	return copied
}

// AbridgeSession bounds every transaction record in a session copy for
// display.
func AbridgeSession(sess *Session) *Session {
	if sess == nil {
		return nil
	}
	for id, tx := range sess.Transactions {
		sess.Transactions[id] = AbridgeTransaction(tx)
	}
	sess.LastTransaction = AbridgeTransaction(sess.LastTransaction)
	return sess
}
