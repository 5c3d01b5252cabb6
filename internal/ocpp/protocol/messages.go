package protocol

import (
	"encoding/json"
	"time"
)

// BootNotificationRequest minimal subset.
type BootNotificationRequest struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	ChargePointSerial string `json:"chargePointSerialNumber"`
	FirmwareVersion   string `json:"firmwareVersion"`
}

// BootNotificationResponse accepts the charge point.
type BootNotificationResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
}

// HeartbeatResponse echoes server time.
type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime"`
}

// StatusNotificationRequest payload.
type StatusNotificationRequest struct {
	ConnectorID int       `json:"connectorId"`
	Status      string    `json:"status"`
	ErrorCode   string    `json:"errorCode"`
	Info        string    `json:"info,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	VendorID    string    `json:"vendorId,omitempty"`
}

// StatusNotificationResponse is empty (ack).
type StatusNotificationResponse struct{}

// StartTransactionRequest payload.
type StartTransactionRequest struct {
	ConnectorID   int       `json:"connectorId"`
	IdTag         string    `json:"idTag"`
	MeterStart    int64     `json:"meterStart"`
	ReservationID int       `json:"reservationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StartTransactionResponse carries the id assigned by the server.
type StartTransactionResponse struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

// IdTagInfo authorization marker.
type IdTagInfo struct {
	Status string `json:"status"`
}

// StopTransactionRequest payload. TransactionData carries the final meter
// samples reported with the stop; the engine treats them as opaque.
type StopTransactionRequest struct {
	TransactionID   int               `json:"transactionId"`
	IdTag           string            `json:"idTag,omitempty"`
	MeterStop       int64             `json:"meterStop"`
	Timestamp       time.Time         `json:"timestamp"`
	Reason          string            `json:"reason,omitempty"`
	TransactionData []json.RawMessage `json:"transactionData,omitempty"`
}

// StopTransactionResponse is empty (ack).
type StopTransactionResponse struct{}

// MeterValuesRequest payload. Samples stay opaque to the engine.
type MeterValuesRequest struct {
	ConnectorID   int               `json:"connectorId"`
	TransactionID int               `json:"transactionId,omitempty"`
	MeterValue    []json.RawMessage `json:"meterValue"`
}

// MeterValuesResponse is empty (ack).
type MeterValuesResponse struct{}

// RemoteStartTransactionRequest issued by the scheduler or the control API.
type RemoteStartTransactionRequest struct {
	ConnectorID int    `json:"connectorId"`
	IdTag       string `json:"idTag"`
}

// RemoteStartTransactionResponse carries accept/reject.
type RemoteStartTransactionResponse struct {
	Status string `json:"status"`
}

// RemoteStopTransactionRequest stops a running transaction by id.
type RemoteStopTransactionRequest struct {
	TransactionID int `json:"transactionId"`
}

// RemoteStopTransactionResponse carries accept/reject.
type RemoteStopTransactionResponse struct {
	Status string `json:"status"`
}

// ResetRequest asks the charge point to restart.
type ResetRequest struct {
	Type string `json:"type"`
}

// ResetResponse carries accept/reject.
type ResetResponse struct {
	Status string `json:"status"`
}

// TriggerMessageRequest asks the charge point to send a notification.
type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage"`
	ConnectorID      int    `json:"connectorId,omitempty"`
}

// TriggerMessageResponse carries accept/reject.
type TriggerMessageResponse struct {
	Status string `json:"status"`
}

// GetConfigurationRequest with no keys returns the full configuration.
type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty"`
}
