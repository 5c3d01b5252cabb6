package handlers

import (
	"context"
	"encoding/json"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/service"
)

// NewStopTransactionHandler closes out the reported transaction.
func NewStopTransactionHandler(control *service.ChargeControl) ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StopTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		if err := control.HandleStopTransaction(identity, req); err != nil {
			return nil, err
		}
		return protocol.StopTransactionResponse{}, nil
	}
}
