package handlers

import (
	"context"
	"encoding/json"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/service"
)

// NewStartTransactionHandler assigns the transaction id and echoes it back
// with an acceptance marker.
func NewStartTransactionHandler(control *service.ChargeControl) ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StartTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		id, err := control.HandleStartTransaction(identity, req)
		if err != nil {
			return nil, err
		}

		resp := protocol.StartTransactionResponse{TransactionID: id}
		resp.IdTagInfo.Status = protocol.StatusAccepted
		return resp, nil
	}
}
