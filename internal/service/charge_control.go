package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"chargepilot/internal/events"
	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/schedule"
)

// Commander issues remote commands to a connected charge point and awaits the
// reply. Implemented by the websocket manager.
type Commander interface {
	Call(ctx context.Context, identity, action string, payload interface{}) (json.RawMessage, error)
}

// ChargeControl orchestrates session state, the charging-window policy, and
// the deferred start/stop commands derived from it.
type ChargeControl struct {
	store       *Store
	timers      *schedule.Timers
	commander   Commander
	bus         *events.Bus
	logger      *zap.Logger
	idTag       string
	callTimeout time.Duration
	now         func() time.Time
}

// NewChargeControl wires the engine.
func NewChargeControl(store *Store, timers *schedule.Timers, commander Commander, bus *events.Bus, idTag string, callTimeout time.Duration, logger *zap.Logger) *ChargeControl {
	return &ChargeControl{
		store:       store,
		timers:      timers,
		commander:   commander,
		bus:         bus,
		logger:      logger,
		idTag:       idTag,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// Store exposes the session store for read-only consumers.
func (c *ChargeControl) Store() *Store {
	return c.store
}

// HandleConnect runs the create-or-merge step for a connecting charger. A
// merged session with a previously known status gets a TriggerMessage so the
// resulting fresh StatusNotification re-arms scheduling against live timers;
// the carried-forward schedule timestamps alone are advisory.
func (c *ChargeControl) HandleConnect(identity string) {
	merged := c.store.Connect(identity)
	c.logger.Info("charger connected", zap.String("identity", identity), zap.Bool("merged", merged))

	if !merged {
		return
	}
	if _, known := c.store.Status(identity); !known {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
		defer cancel()
		if _, ok := c.callSafe(ctx, identity, protocol.ActionTriggerMessage, protocol.TriggerMessageRequest{
			RequestedMessage: protocol.ActionStatusNotification,
		}); !ok {
			c.logger.Warn("status refresh trigger failed", zap.String("identity", identity))
		}
	}()
}

// HandleDisconnect flips liveness. Pending timers stay armed; their commands
// fail softly against a dead connection.
func (c *ChargeControl) HandleDisconnect(identity string) {
	c.store.Disconnect(identity)
	c.logger.Info("charger disconnected", zap.String("identity", identity))
}

// HandleStatus applies a StatusNotification. "Preparing" means a vehicle
// plugged in: the start of the charging window is computed and a deferred
// remote start armed. "Available" while a transaction is open is an
// out-of-band end of charge: the transaction is closed out and any pending
// stop cancelled.
func (c *ChargeControl) HandleStatus(identity string, req protocol.StatusNotificationRequest) error {
	receivedAt := req.Timestamp
	if receivedAt.IsZero() {
		receivedAt = c.now()
	}
	if err := c.store.ApplyStatus(identity, StatusRecord{
		Status:     req.Status,
		ErrorCode:  req.ErrorCode,
		Info:       req.Info,
		ReceivedAt: receivedAt,
	}); err != nil {
		return err
	}

	switch req.Status {
	case protocol.ConnectorPreparing:
		c.scheduleStart(identity, req.ConnectorID)
	case protocol.ConnectorAvailable:
		if c.store.CloseActiveTransaction(identity, c.now()) {
			c.timers.Cancel(identity, schedule.KindStop)
			c.store.ClearScheduledStop(identity)
			c.logger.Info("transaction closed by status", zap.String("identity", identity))
		}
	}
	return nil
}

// scheduleStart arms the deferred remote start. The safety margin is applied
// to both the reference instant and the computed start, so a start near a
// window boundary never lands inside the charge point's refusal period.
func (c *ChargeControl) scheduleStart(identity string, connectorID int) {
	reference := c.now().Add(schedule.SafetyMargin)
	startAt := schedule.NextStart(reference).Add(schedule.SafetyMargin)

	c.store.SetSchedule(identity, &startAt, nil)
	c.timers.Arm(identity, schedule.KindStart, startAt, func() {
		c.runStart(identity, connectorID)
	})
	c.logger.Info("remote start scheduled",
		zap.String("identity", identity), zap.Time("at", startAt))
}

// runStart fires the remote start; on acceptance it arms the stop for the end
// of the window, computed at fire time. A rejected start abandons the chain.
func (c *ChargeControl) runStart(identity string, connectorID int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	raw, ok := c.callSafe(ctx, identity, protocol.ActionRemoteStartTransaction, protocol.RemoteStartTransactionRequest{
		ConnectorID: connectorID,
		IdTag:       c.idTag,
	})
	if !ok {
		return
	}

	resp, err := ocpp.Decode[protocol.RemoteStartTransactionResponse](raw)
	if err != nil {
		c.logger.Warn("remote start response malformed", zap.String("identity", identity), zap.Error(err))
		return
	}
	if resp.Status != protocol.StatusAccepted {
		c.logger.Info("remote start rejected", zap.String("identity", identity))
		return
	}
	c.logger.Info("remote start accepted", zap.String("identity", identity))

	stopAt := schedule.StopTime(c.now())
	c.store.SetSchedule(identity, nil, &stopAt)
	c.timers.Arm(identity, schedule.KindStop, stopAt, func() {
		c.runStop(identity)
	})
	c.logger.Info("remote stop scheduled",
		zap.String("identity", identity), zap.Time("at", stopAt))
}

// runStop fires the remote stop for whatever transaction is open at fire
// time. With none open there is nothing to stop.
func (c *ChargeControl) runStop(identity string) {
	txID, err := c.store.ActiveTransactionID(identity)
	if err != nil || txID == 0 {
		c.logger.Info("scheduled stop found no open transaction", zap.String("identity", identity))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	if _, ok := c.callSafe(ctx, identity, protocol.ActionRemoteStopTransaction, protocol.RemoteStopTransactionRequest{
		TransactionID: txID,
	}); ok {
		c.logger.Info("remote stop issued", zap.String("identity", identity), zap.Int("transaction_id", txID))
	}
}

// HandleStartTransaction assigns and records the next transaction id.
func (c *ChargeControl) HandleStartTransaction(identity string, req protocol.StartTransactionRequest) (int, error) {
	startedAt := req.Timestamp
	if startedAt.IsZero() {
		startedAt = c.now()
	}
	id, err := c.store.StartTransaction(identity, startedAt)
	if err != nil {
		return 0, err
	}
	c.logger.Info("transaction started",
		zap.String("identity", identity), zap.Int("transaction_id", id), zap.Int64("meter_start", req.MeterStart))
	return id, nil
}

// HandleStopTransaction closes out the reported transaction.
func (c *ChargeControl) HandleStopTransaction(identity string, req protocol.StopTransactionRequest) error {
	stoppedAt := req.Timestamp
	if stoppedAt.IsZero() {
		stoppedAt = c.now()
	}
	if err := c.store.StopTransaction(identity, req.TransactionID, stoppedAt, req.TransactionData); err != nil {
		return err
	}
	c.logger.Info("transaction stopped",
		zap.String("identity", identity), zap.Int("transaction_id", req.TransactionID), zap.String("reason", req.Reason))
	return nil
}

// HandleMeterValues appends samples to the active transaction. Orphan samples
// (no open transaction) are logged and acknowledged; there is no record to
// extend and the charge point is not at fault for our restart.
func (c *ChargeControl) HandleMeterValues(identity string, req protocol.MeterValuesRequest) error {
	err := c.store.RecordMeterValues(identity, req.MeterValue)
	if errors.Is(err, ErrNoActiveTransaction) {
		c.logger.Warn("meter values without active transaction",
			zap.String("identity", identity), zap.Int("transaction_id", req.TransactionID))
		return nil
	}
	return err
}

// RemoteStart issues an immediate remote start on connector 1, outside the
// scheduling policy.
func (c *ChargeControl) RemoteStart(ctx context.Context, identity string) (json.RawMessage, error) {
	return c.commander.Call(ctx, identity, protocol.ActionRemoteStartTransaction, protocol.RemoteStartTransactionRequest{
		ConnectorID: 1,
		IdTag:       c.idTag,
	})
}

// RemoteStop stops the session's open transaction now.
func (c *ChargeControl) RemoteStop(ctx context.Context, identity string) (json.RawMessage, error) {
	txID, err := c.store.ActiveTransactionID(identity)
	if err != nil {
		return nil, err
	}
	if txID == 0 {
		return nil, ErrNoActiveTransaction
	}
	return c.commander.Call(ctx, identity, protocol.ActionRemoteStopTransaction, protocol.RemoteStopTransactionRequest{
		TransactionID: txID,
	})
}

// SoftReset asks the charge point to restart gracefully.
func (c *ChargeControl) SoftReset(ctx context.Context, identity string) (json.RawMessage, error) {
	return c.commander.Call(ctx, identity, protocol.ActionReset, protocol.ResetRequest{Type: protocol.ResetSoft})
}

// Configuration fetches the charge point's full configuration.
func (c *ChargeControl) Configuration(ctx context.Context, identity string) (json.RawMessage, error) {
	return c.commander.Call(ctx, identity, protocol.ActionGetConfiguration, protocol.GetConfigurationRequest{})
}

// TriggerAndAwait asks the device to send the named notification and waits
// for it to arrive, bounded by timeout. The subscription is registered before
// the trigger so the notification cannot slip past the waiter.
func (c *ChargeControl) TriggerAndAwait(ctx context.Context, identity, message string, timeout time.Duration) (json.RawMessage, error) {
	waiter := c.bus.SubscribeOnce(identity, message)

	if _, err := c.commander.Call(ctx, identity, protocol.ActionTriggerMessage, protocol.TriggerMessageRequest{
		RequestedMessage: message,
	}); err != nil {
		waiter.Cancel()
		return nil, err
	}

	return waiter.Await(ctx, timeout)
}

// callSafe never propagates transport failure; it reports ok=false instead so
// timer actions fail softly against disconnected chargers.
func (c *ChargeControl) callSafe(ctx context.Context, identity, action string, payload interface{}) (json.RawMessage, bool) {
	raw, err := c.commander.Call(ctx, identity, action, payload)
	if err != nil {
		c.logger.Warn("remote command failed",
			zap.String("identity", identity), zap.String("action", action), zap.Error(err))
		return nil, false
	}
	return raw, true
}
