package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func sample(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"value":%d}`, i))
}

func TestConnectCreatesThenMerges(t *testing.T) {
	store := NewStore()

	if merged := store.Connect("cp-1"); merged {
		t.Fatalf("first connect should not merge")
	}
	if merged := store.Connect("cp-1"); !merged {
		t.Fatalf("second connect should merge")
	}
}

func TestReconnectMergeCarriesTransactions(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	id, err := store.StartTransaction("cp-1", time.Now())
	if err != nil {
		t.Fatalf("start transaction: %v", err)
	}
	if err := store.RecordMeterValues("cp-1", []json.RawMessage{sample(1)}); err != nil {
		t.Fatalf("record meter values: %v", err)
	}

	store.Disconnect("cp-1")
	store.Connect("cp-1")

	sess, err := store.Snapshot("cp-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !sess.Connected {
		t.Fatalf("expected connected after reconnect")
	}
	if sess.ActiveTransactionID != id {
		t.Fatalf("expected active transaction %d, got %d", id, sess.ActiveTransactionID)
	}
	if len(sess.Transactions) != 1 || len(sess.Transactions[id].MeterValues) != 1 {
		t.Fatalf("transactions not carried forward: %+v", sess.Transactions)
	}
}

func TestTransactionIDPrecedence(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	first, _ := store.StartTransaction("cp-1", time.Now())
	if first != 1 {
		t.Fatalf("expected first id 1, got %d", first)
	}

	// No intervening stop: the active id drives the increment.
	second, _ := store.StartTransaction("cp-1", time.Now())
	if second != first+1 {
		t.Fatalf("expected %d, got %d", first+1, second)
	}

	if err := store.StopTransaction("cp-1", second, time.Now(), nil); err != nil {
		t.Fatalf("stop: %v", err)
	}
	third, _ := store.StartTransaction("cp-1", time.Now())
	if third != second+1 {
		t.Fatalf("expected increment from last id, got %d", third)
	}
}

func TestStopTransactionUpdatesLast(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	id, _ := store.StartTransaction("cp-1", time.Now())
	final := []json.RawMessage{sample(7)}
	if err := store.StopTransaction("cp-1", id, time.Now(), final); err != nil {
		t.Fatalf("stop: %v", err)
	}

	sess, _ := store.Snapshot("cp-1")
	if sess.ActiveTransactionID != 0 {
		t.Fatalf("active id not cleared")
	}
	if sess.LastTransactionID != id || sess.LastTransaction == nil {
		t.Fatalf("last transaction fields not set")
	}
	if len(sess.LastTransaction.MeterValues) != 1 {
		t.Fatalf("final samples not appended")
	}
	if sess.LastTransaction.StoppedAt == nil {
		t.Fatalf("stoppedAt not set")
	}
}

func TestStopTransactionMismatchedIDKeepsActive(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	id, _ := store.StartTransaction("cp-1", time.Now())
	if err := store.StopTransaction("cp-1", id+5, time.Now(), nil); err != nil {
		t.Fatalf("stop: %v", err)
	}

	sess, _ := store.Snapshot("cp-1")
	if sess.ActiveTransactionID != id {
		t.Fatalf("active id cleared by mismatched stop")
	}
	if sess.LastTransactionID != id+5 {
		t.Fatalf("last id should follow the reported stop")
	}
}

func TestRecordMeterValuesWithoutTransaction(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	err := store.RecordMeterValues("cp-1", []json.RawMessage{sample(1)})
	if !errors.Is(err, ErrNoActiveTransaction) {
		t.Fatalf("expected ErrNoActiveTransaction, got %v", err)
	}
}

func TestCloseActiveTransaction(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")

	id, _ := store.StartTransaction("cp-1", time.Now())
	if !store.CloseActiveTransaction("cp-1", time.Now()) {
		t.Fatalf("expected close to report work")
	}
	if store.CloseActiveTransaction("cp-1", time.Now()) {
		t.Fatalf("second close should be a no-op")
	}

	sess, _ := store.Snapshot("cp-1")
	if sess.ActiveTransactionID != 0 || sess.LastTransactionID != id {
		t.Fatalf("close did not move active to last")
	}
}

func TestAbridgeTransaction(t *testing.T) {
	tx := &TransactionRecord{ID: 1}
	for i := 0; i < 150; i++ {
		tx.MeterValues = append(tx.MeterValues, sample(i))
	}

	abridged := AbridgeTransaction(tx)
	if len(abridged.MeterValues) != 100 {
		t.Fatalf("expected 100 displayed samples, got %d", len(abridged.MeterValues))
	}
	if string(abridged.MeterValues[74]) != string(sample(74)) {
		t.Fatalf("head samples not preserved in order")
	}
	if string(abridged.MeterValues[75]) != string(sample(125)) {
		t.Fatalf("tail must resume at sample 125, got %s", abridged.MeterValues[75])
	}
	if string(abridged.MeterValues[99]) != string(sample(149)) {
		t.Fatalf("tail samples not preserved in order")
	}
	if len(tx.MeterValues) != 150 {
		t.Fatalf("stored record must keep all samples")
	}
}

func TestAbridgeLeavesSmallRecordsAlone(t *testing.T) {
	tx := &TransactionRecord{ID: 1}
	for i := 0; i < 100; i++ {
		tx.MeterValues = append(tx.MeterValues, sample(i))
	}
	if got := AbridgeTransaction(tx); len(got.MeterValues) != 100 {
		t.Fatalf("threshold record must not be abridged")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Connect("cp-1")
	store.StartTransaction("cp-1", time.Now())

	sess, _ := store.Snapshot("cp-1")
	sess.Transactions[1].MeterValues = append(sess.Transactions[1].MeterValues, sample(9))
	sess.Status = "tampered"

	fresh, _ := store.Snapshot("cp-1")
	if len(fresh.Transactions[1].MeterValues) != 0 || fresh.Status == "tampered" {
		t.Fatalf("snapshot shares state with the store")
	}
}

func TestSeedRestoresDisconnectedPlaceholders(t *testing.T) {
	store := NewStore()
	stopped := time.Now()
	store.Seed([]*Session{{
		Identity:          "cp-1",
		Connected:         true, // must be ignored
		Status:            "Available",
		LastTransactionID: 3,
		LastTransaction:   &TransactionRecord{ID: 3, StoppedAt: &stopped},
	}})

	sess, err := store.Snapshot("cp-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if sess.Connected {
		t.Fatalf("restored session must start disconnected")
	}
	if sess.Status != "Available" || sess.LastTransactionID != 3 {
		t.Fatalf("restored fields lost: %+v", sess)
	}
}
