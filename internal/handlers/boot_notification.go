package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
)

const heartbeatIntervalSeconds = 300

// NewBootNotificationHandler accepts the charge point and hands it the
// heartbeat interval.
func NewBootNotificationHandler(logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.BootNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		logger.Info("boot notification",
			zap.String("identity", identity),
			zap.String("vendor", req.ChargePointVendor),
			zap.String("model", req.ChargePointModel))

		return protocol.BootNotificationResponse{
			Status:      protocol.StatusAccepted,
			CurrentTime: time.Now().UTC(),
			Interval:    heartbeatIntervalSeconds,
		}, nil
	}
}
