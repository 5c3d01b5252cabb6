package ocpp

import (
	"encoding/json"
	"testing"

	"chargepilot/internal/ocpp/protocol"
)

func TestParseCall(t *testing.T) {
	raw := []byte(`[2,"msg-1","StatusNotification",{"connectorId":1,"status":"Preparing"}]`)
	msg, err := NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.MessageType != protocol.MessageTypeCall || msg.UniqueID != "msg-1" || msg.Action != "StatusNotification" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload not preserved: %v", err)
	}
	if payload["status"] != "Preparing" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestParseCallResult(t *testing.T) {
	raw := []byte(`[3,"msg-2",{"status":"Accepted"}]`)
	msg, err := NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.MessageType != protocol.MessageTypeCallResult || msg.UniqueID != "msg-2" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if string(msg.Payload) != `{"status":"Accepted"}` {
		t.Fatalf("payload not preserved: %s", msg.Payload)
	}
}

func TestParseCallError(t *testing.T) {
	raw := []byte(`[4,"msg-3","NotImplemented","action not supported",{}]`)
	msg, err := NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.ErrorCode != "NotImplemented" || msg.ErrorDescription != "action not supported" {
		t.Fatalf("error fields not parsed: %+v", msg)
	}
}

func TestParseRejectsMalformedFrames(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`[2,"msg-1"]`),
		[]byte(`[2,"msg-1","Action"]`),
		[]byte(`[9,"msg-1",{}]`),
	}
	for _, raw := range cases {
		if _, err := NewParser().Parse(raw); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestBuildCallRoundTrip(t *testing.T) {
	frame, err := BuildCall("msg-4", "Reset", map[string]string{"type": "Soft"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	msg, err := NewParser().Parse(frame)
	if err != nil {
		t.Fatalf("parse built frame: %v", err)
	}
	if msg.Action != "Reset" || msg.UniqueID != "msg-4" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
