package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeSerialization(t *testing.T) {
	data := &SpeechData{
		Text:     "good morning",
		Language: "en",
		Segments: 2,
	}

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}

	env := Envelope{
		ID:        "test-id",
		Type:      SpeechFinal,
		Source:    "whisperlive",
		SessionID: "session-123",
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if decoded.Type != SpeechFinal {
		t.Errorf("type = %q, want %q", decoded.Type, SpeechFinal)
	}
	if decoded.SessionID != "session-123" {
		t.Errorf("session_id = %q, want %q", decoded.SessionID, "session-123")
	}

	var payload SpeechData
	if err := json.Unmarshal(decoded.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Text != "good morning" || payload.Segments != 2 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []EventType{
		SessionStarted, SessionClosed,
		SpeechPartial, SpeechFinal,
		BatchAccepted, BatchCompleted, BatchFailed,
		SystemError,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type: %q", et)
		}
		seen[et] = true
	}
}

func TestLocalSubscription(t *testing.T) {
	p := NewPublisher(nil, "whisperlive", "events")

	ch := p.Subscribe("listener", 4)
	defer p.Unsubscribe("listener")

	err := p.Emit(context.Background(), SessionStarted, "sess-1", SessionStartedData{Language: "en"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	select {
	case env := <-ch:
		if env.Type != SessionStarted || env.SessionID != "sess-1" {
			t.Errorf("envelope = %+v", env)
		}
		if env.ID == "" {
			t.Error("envelope missing id")
		}
	case <-time.After(time.Second):
		t.Fatal("no envelope delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher(nil, "whisperlive", "events")

	ch := p.Subscribe("listener", 1)
	p.Unsubscribe("listener")

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}

	// Emitting after unsubscribe must not panic.
	if err := p.Emit(context.Background(), SessionClosed, "sess-1", nil); err != nil {
		t.Fatalf("emit after unsubscribe: %v", err)
	}
}
