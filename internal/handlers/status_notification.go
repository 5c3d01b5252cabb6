package handlers

import (
	"context"
	"encoding/json"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/service"
)

// NewStatusNotificationHandler records the status and lets the engine derive
// scheduling from it.
func NewStatusNotificationHandler(control *service.ChargeControl) ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StatusNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		if err := control.HandleStatus(identity, req); err != nil {
			return nil, err
		}
		return protocol.StatusNotificationResponse{}, nil
	}
}
