package ocpp

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// MessageLog stores raw OCPP traffic. Implementations must tolerate being nil
// checked away; persistence failures never affect message handling.
type MessageLog interface {
	Save(ctx context.Context, identity, direction, action string, payload []byte) error
}

// EventSink receives every handled notification, keyed by charger identity and
// action, so external waiters can correlate triggered messages.
type EventSink interface {
	Publish(identity, action string, payload json.RawMessage)
}

// Processor ties together routing, event publication, and response encoding
// for inbound CALL frames.
type Processor struct {
	router  *Router
	events  EventSink
	logRepo MessageLog
	logger  *zap.Logger
}

// NewProcessor builds Processor.
func NewProcessor(router *Router, events EventSink, logRepo MessageLog, logger *zap.Logger) *Processor {
	return &Processor{
		router:  router,
		events:  events,
		logRepo: logRepo,
		logger:  logger,
	}
}

// ProcessCall handles a parsed CALL frame and returns response frame bytes.
// Unrecognized actions are still published on the event sink and answered with
// a NotImplemented CALLERROR; they are not a failure of the connection.
func (p *Processor) ProcessCall(ctx context.Context, identity string, msg *Message) ([]byte, error) {
	if p.logRepo != nil {
		_ = p.logRepo.Save(ctx, identity, "incoming", msg.Action, msg.Payload)
	}

	responsePayload, err := p.router.Route(ctx, identity, msg)
	if err != nil {
		if errors.Is(err, ErrUnsupportedAction) {
			if p.events != nil {
				p.events.Publish(identity, msg.Action, msg.Payload)
			}
			p.logger.Info("unsupported ocpp action",
				zap.String("identity", identity), zap.String("action", msg.Action))
			return BuildCallError(msg.UniqueID, "NotImplemented", "action not supported")
		}
		p.logger.Warn("ocpp handler failed",
			zap.String("identity", identity), zap.String("action", msg.Action), zap.Error(err))
		return BuildCallError(msg.UniqueID, "InternalError", err.Error())
	}

	if p.events != nil {
		p.events.Publish(identity, msg.Action, msg.Payload)
	}

	respBytes, err := BuildCallResult(msg.UniqueID, responsePayload)
	if err != nil {
		p.logger.Error("encode ocpp response failed", zap.Error(err))
		return nil, err
	}

	if p.logRepo != nil {
		_ = p.logRepo.Save(ctx, identity, "outgoing", msg.Action, respBytes)
	}

	return respBytes, nil
}
