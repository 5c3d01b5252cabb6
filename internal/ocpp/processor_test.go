package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type publishedEvent struct {
	identity string
	action   string
	payload  json.RawMessage
}

type fakeSink struct {
	events []publishedEvent
}

func (f *fakeSink) Publish(identity, action string, payload json.RawMessage) {
	f.events = append(f.events, publishedEvent{identity: identity, action: action, payload: payload})
}

func callMessage(uid, action, payload string) *Message {
	return &Message{MessageType: 2, UniqueID: uid, Action: action, Payload: json.RawMessage(payload)}
}

func TestProcessCallRoutesAndPublishes(t *testing.T) {
	router := NewRouter()
	router.Register("Heartbeat", func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		return map[string]string{"currentTime": "2025-01-06T00:00:00Z"}, nil
	})
	sink := &fakeSink{}
	processor := NewProcessor(router, sink, nil, zap.NewNop())

	resp, err := processor.ProcessCall(context.Background(), "cp-1", callMessage("m1", "Heartbeat", `{}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.HasPrefix(string(resp), `[3,"m1"`) {
		t.Fatalf("expected CALLRESULT frame, got %s", resp)
	}
	if len(sink.events) != 1 || sink.events[0].action != "Heartbeat" || sink.events[0].identity != "cp-1" {
		t.Fatalf("event not published: %+v", sink.events)
	}
}

func TestProcessCallUnsupportedAction(t *testing.T) {
	sink := &fakeSink{}
	processor := NewProcessor(NewRouter(), sink, nil, zap.NewNop())

	resp, err := processor.ProcessCall(context.Background(), "cp-1", callMessage("m2", "DataTransfer", `{"vendorId":"x"}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(string(resp), "NotImplemented") {
		t.Fatalf("expected NotImplemented CALLERROR, got %s", resp)
	}
	if len(sink.events) != 1 || sink.events[0].action != "DataTransfer" {
		t.Fatalf("unsupported action not published: %+v", sink.events)
	}
}

func TestProcessCallHandlerFailure(t *testing.T) {
	router := NewRouter()
	router.Register("StartTransaction", func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error) {
		return nil, errors.New("store unavailable")
	})
	processor := NewProcessor(router, &fakeSink{}, nil, zap.NewNop())

	resp, err := processor.ProcessCall(context.Background(), "cp-1", callMessage("m3", "StartTransaction", `{}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(string(resp), "InternalError") {
		t.Fatalf("expected InternalError CALLERROR, got %s", resp)
	}
}
