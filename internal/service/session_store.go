package service

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// Store errors surfaced to callers.
var (
	ErrUnknownSession      = errors.New("session: unknown identity")
	ErrNoActiveTransaction = errors.New("session: no active transaction")
	ErrTransactionNotFound = errors.New("session: transaction not found")
)

// Store maps charger identity to session state. It is the only shared mutable
// resource in the engine; every mutation happens under its lock so one
// notification is fully applied before the next begins.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Connect creates the session on first contact or merges the existing one on
// reconnect: transactions, status history and scheduled timestamps are carried
// forward, only the connection flag is reset. It reports whether prior state
// was merged.
func (s *Store) Connect(identity string) (merged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		s.sessions[identity] = &Session{
			Identity:     identity,
			Connected:    true,
			Transactions: make(map[int]*TransactionRecord),
		}
		return false
	}

	sess.Connected = true
	return true
}

// Disconnect flips the liveness flag. Sessions are never deleted for the life
// of the process.
func (s *Store) Disconnect(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[identity]; ok {
		sess.Connected = false
	}
}

// Snapshot returns a deep copy of the session.
func (s *Store) Snapshot(identity string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess.clone(), nil
}

// Status returns the last reported device status, if any.
func (s *Store) Status(identity string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok || sess.Status == "" {
		return "", false
	}
	return sess.Status, true
}

// Identities lists known identities in stable order.
func (s *Store) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyStatus appends the record to the session's status history and updates
// the current status.
func (s *Store) ApplyStatus(identity string, record StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return ErrUnknownSession
	}

	sess.Status = record.Status
	sess.StatusHistory = append(sess.StatusHistory, record)
	return nil
}

// StartTransaction assigns the next transaction id, creates its empty record,
// and marks it active. Id precedence: an active id still set from a reconnect
// race wins, then the last closed id, then 1.
func (s *Store) StartTransaction(identity string, startedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return 0, ErrUnknownSession
	}

	var id int
	switch {
	case sess.hasActiveTransaction():
		id = sess.ActiveTransactionID + 1
	case sess.LastTransactionID != 0:
		id = sess.LastTransactionID + 1
	default:
		id = 1
	}

	if sess.Transactions == nil {
		sess.Transactions = make(map[int]*TransactionRecord)
	}
	sess.Transactions[id] = &TransactionRecord{ID: id, StartedAt: startedAt}
	sess.ActiveTransactionID = id
	return id, nil
}

// StopTransaction closes the transaction: the active marker is cleared when it
// matches, the last-transaction fields always move to the stopped record, and
// any final samples are appended to it.
func (s *Store) StopTransaction(identity string, transactionID int, stoppedAt time.Time, finalSamples []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return ErrUnknownSession
	}

	if sess.ActiveTransactionID == transactionID {
		sess.ActiveTransactionID = 0
	}

	tx, ok := sess.Transactions[transactionID]
	if !ok {
		// A stop for a transaction opened before a restart still closes out.
		tx = &TransactionRecord{ID: transactionID}
		if sess.Transactions == nil {
			sess.Transactions = make(map[int]*TransactionRecord)
		}
		sess.Transactions[transactionID] = tx
	}

	tx.StoppedAt = &stoppedAt
	tx.MeterValues = append(tx.MeterValues, finalSamples...)

	sess.LastTransactionID = transactionID
	sess.LastTransaction = tx
	return nil
}

// RecordMeterValues appends samples to the active transaction's record.
// Samples without an active transaction have no record to extend and are
// reported as ErrNoActiveTransaction.
func (s *Store) RecordMeterValues(identity string, samples []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return ErrUnknownSession
	}
	if !sess.hasActiveTransaction() {
		return ErrNoActiveTransaction
	}

	tx, ok := sess.Transactions[sess.ActiveTransactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.MeterValues = append(tx.MeterValues, samples...)
	return nil
}

// Transaction returns a deep copy of one transaction record.
func (s *Store) Transaction(identity string, transactionID int) (*TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return nil, ErrUnknownSession
	}
	tx, ok := sess.Transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return tx.clone(), nil
}

// ActiveTransactionID returns the open transaction id, zero when none.
func (s *Store) ActiveTransactionID(identity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return 0, ErrUnknownSession
	}
	return sess.ActiveTransactionID, nil
}

// CloseActiveTransaction snapshots the active transaction into the
// last-transaction fields and clears the active marker; used when the device
// reports Available while a transaction is still marked open. It reports
// whether anything was closed.
func (s *Store) CloseActiveTransaction(identity string, closedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok || !sess.hasActiveTransaction() {
		return false
	}

	id := sess.ActiveTransactionID
	sess.ActiveTransactionID = 0
	sess.LastTransactionID = id
	if tx, ok := sess.Transactions[id]; ok {
		if tx.StoppedAt == nil {
			tx.StoppedAt = &closedAt
		}
		sess.LastTransaction = tx
	}
	return true
}

// SetSchedule records the advisory timestamp for a pending start or stop.
func (s *Store) SetSchedule(identity string, start *time.Time, stop *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return
	}
	if start != nil {
		sess.ScheduledStart = start
	}
	if stop != nil {
		sess.ScheduledStop = stop
	}
}

// ClearScheduledStop drops the advisory stop timestamp.
func (s *Store) ClearScheduledStop(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[identity]; ok {
		sess.ScheduledStop = nil
	}
}

// Export returns deep copies of every session, for persistence.
func (s *Store) Export() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess.clone())
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Identity < sessions[j].Identity })
	return sessions
}

// Seed installs restored sessions as disconnected placeholders. Existing
// entries are left alone; restore runs before the transport accepts
// connections, so collisions only happen on a programming error.
func (s *Store) Seed(sessions []*Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range sessions {
		if sess == nil || sess.Identity == "" {
			continue
		}
		if _, ok := s.sessions[sess.Identity]; ok {
			continue
		}
		restored := sess.clone()
		restored.Connected = false
		if restored.Transactions == nil {
			restored.Transactions = make(map[int]*TransactionRecord)
		}
		s.sessions[sess.Identity] = restored
	}
}
