package handlers

import (
	"context"
	"encoding/json"
	"time"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
)

// NewHeartbeatHandler echoes server time.
func NewHeartbeatHandler() ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		return protocol.HeartbeatResponse{CurrentTime: time.Now().UTC()}, nil
	}
}
