package handlers

import (
	"context"
	"encoding/json"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/service"
)

// NewMeterValuesHandler appends samples to the active transaction record.
func NewMeterValuesHandler(control *service.ChargeControl) ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.MeterValuesRequest](payload)
		if err != nil {
			return nil, err
		}

		if err := control.HandleMeterValues(identity, req); err != nil {
			return nil, err
		}
		return protocol.MeterValuesResponse{}, nil
	}
}
