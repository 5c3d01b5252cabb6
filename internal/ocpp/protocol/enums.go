package protocol

// MessageType values as per OCPP-J spec.
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Actions received from the charge point.
const (
	ActionBootNotification   = "BootNotification"
	ActionHeartbeat          = "Heartbeat"
	ActionStatusNotification = "StatusNotification"
	ActionStartTransaction   = "StartTransaction"
	ActionStopTransaction    = "StopTransaction"
	ActionMeterValues        = "MeterValues"
)

// Actions sent to the charge point.
const (
	ActionRemoteStartTransaction = "RemoteStartTransaction"
	ActionRemoteStopTransaction  = "RemoteStopTransaction"
	ActionReset                  = "Reset"
	ActionTriggerMessage         = "TriggerMessage"
	ActionGetConfiguration       = "GetConfiguration"
)

// Generic accept/reject markers.
const (
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

// StatusNotification status values (subset the engine cares about; anything
// else is pass-through).
const (
	ConnectorAvailable = "Available"
	ConnectorPreparing = "Preparing"
	ConnectorCharging  = "Charging"
	ConnectorFinishing = "Finishing"
	ConnectorFaulted   = "Faulted"
)

// Reset types.
const (
	ResetSoft = "Soft"
	ResetHard = "Hard"
)
