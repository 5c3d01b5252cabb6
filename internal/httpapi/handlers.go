package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chargepilot/internal/events"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/service"
	"chargepilot/internal/ws"
)

// Messages a client is allowed to trigger.
var triggerable = map[string]bool{
	protocol.ActionStatusNotification: true,
	protocol.ActionBootNotification:   true,
	protocol.ActionHeartbeat:          true,
	protocol.ActionMeterValues:        true,
}

// Handlers exposes session state and engine operations over HTTP.
type Handlers struct {
	control        *service.ChargeControl
	manager        *ws.Manager
	triggerTimeout time.Duration
	logger         *zap.Logger
}

// NewHandlers ctor.
func NewHandlers(control *service.ChargeControl, manager *ws.Manager, triggerTimeout time.Duration, logger *zap.Logger) *Handlers {
	return &Handlers{
		control:        control,
		manager:        manager,
		triggerTimeout: triggerTimeout,
		logger:         logger,
	}
}

// Clients lists connected charger identities.
func (h *Handlers) Clients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Identities())
}

// Client returns the session for one charger, meter values abridged.
func (h *Handlers) Client(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	if !h.manager.Connected(identity) {
		http.Error(w, "charger not connected", http.StatusServiceUnavailable)
		return
	}

	sess, err := h.control.Store().Snapshot(identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.AbridgeSession(sess))
}

// Transactions returns all transaction records for a charger, abridged.
func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	sess, err := h.control.Store().Snapshot(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	records := make([]*service.TransactionRecord, 0, len(sess.Transactions))
	for _, tx := range sess.Transactions {
		records = append(records, service.AbridgeTransaction(tx))
	}
	writeJSON(w, http.StatusOK, records)
}

// Transaction returns a single transaction record, abridged.
func (h *Handlers) Transaction(w http.ResponseWriter, r *http.Request) {
	txID, err := strconv.Atoi(r.PathValue("txid"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	tx, err := h.control.Store().Transaction(r.PathValue("id"), txID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.AbridgeTransaction(tx))
}

// Start issues an immediate remote start.
func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	raw, err := h.control.RemoteStart(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

// Stop issues an immediate remote stop of the open transaction.
func (h *Handlers) Stop(w http.ResponseWriter, r *http.Request) {
	raw, err := h.control.RemoteStop(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

// Trigger asks the device for a notification and returns the resulting
// payload, or 503 when nothing arrives within the bound.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	message := r.PathValue("message")
	if !triggerable[message] {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}

	payload, err := h.control.TriggerAndAwait(r.Context(), r.PathValue("id"), message, h.triggerTimeout)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(payload))
}

// SoftReset asks one charger to restart gracefully.
func (h *Handlers) SoftReset(w http.ResponseWriter, r *http.Request) {
	raw, err := h.control.SoftReset(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

// SoftResetAll asks every connected charger to restart gracefully.
func (h *Handlers) SoftResetAll(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string)
	for _, identity := range h.manager.Identities() {
		if _, err := h.control.SoftReset(r.Context(), identity); err != nil {
			results[identity] = err.Error()
			continue
		}
		results[identity] = "reset"
	}
	writeJSON(w, http.StatusOK, results)
}

// Configuration fetches the device configuration.
func (h *Handlers) Configuration(w http.ResponseWriter, r *http.Request) {
	raw, err := h.control.Configuration(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

// Health liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ws.ErrNotConnected):
		http.Error(w, "charger not connected", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrUnknownSession):
		http.Error(w, "unknown charger", http.StatusNotFound)
	case errors.Is(err, service.ErrTransactionNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNoActiveTransaction):
		http.Error(w, "no transaction in progress", http.StatusBadRequest)
	case errors.Is(err, events.ErrAwaitTimeout):
		http.Error(w, "timeout while waiting for response", http.StatusServiceUnavailable)
	default:
		h.logger.Warn("control request failed", zap.Error(err))
		http.Error(w, "command failed", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
