package bus

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func validMessage(t *testing.T) BusMessage {
	t.Helper()
	payload, err := EncodeMessageEnvelope(MessageEnvelope{
		MessageID: "wa:551199999:3EB0",
		Text:      "hello",
		SentAt:    "2026-02-08T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("EncodeMessageEnvelope() error = %v", err)
	}
	return BusMessage{
		ID:              "bus_01",
		Direction:       DirectionInbound,
		Channel:         ChannelWhatsApp,
		Topic:           TopicChatMessage,
		ConversationKey: "wa:551199999",
		ParticipantKey:  "551199999",
		IdempotencyKey:  MessageIdempotencyKey("wa:551199999:3EB0"),
		PayloadBase64:   payload,
		CreatedAt:       time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC),
	}
}

func TestBusMessageValidateAcceptsCanonicalMessage(t *testing.T) {
	if err := validMessage(t).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestBusMessageValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*BusMessage)
		wantErr string
	}{
		{name: "missing id", mutate: func(m *BusMessage) { m.ID = "" }, wantErr: "id is required"},
		{name: "bad direction", mutate: func(m *BusMessage) { m.Direction = "sideways" }, wantErr: "direction"},
		{name: "bad channel", mutate: func(m *BusMessage) { m.Channel = "telegram" }, wantErr: "channel is invalid"},
		{name: "bad topic", mutate: func(m *BusMessage) { m.Topic = "Chat Message" }, wantErr: "topic"},
		{name: "missing conversation key", mutate: func(m *BusMessage) { m.ConversationKey = "" }, wantErr: "conversation_key is required"},
		{name: "missing idempotency key", mutate: func(m *BusMessage) { m.IdempotencyKey = "" }, wantErr: "idempotency_key is required"},
		{name: "zero created_at", mutate: func(m *BusMessage) { m.CreatedAt = time.Time{} }, wantErr: "created_at is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validMessage(t)
			tc.mutate(&m)
			err := m.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestEncodeDecodeMessageEnvelopeRoundTrip(t *testing.T) {
	env := MessageEnvelope{
		MessageID: "wa:551199999:3EB0",
		Text:      "hello",
		SentAt:    "2026-02-08T10:00:00Z",
	}
	raw, err := EncodeMessageEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeMessageEnvelope() error = %v", err)
	}
	got, err := DecodeMessageEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeMessageEnvelope() error = %v", err)
	}
	if got != env {
		t.Fatalf("decoded envelope mismatch: got=%+v want=%+v", got, env)
	}
}

func TestDecodeMessageEnvelopeRejectsUnknownField(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte(`{"message_id":"m1","text":"hi","sent_at":"2026-02-08T10:00:00Z","extra":1}`))
	if _, err := DecodeMessageEnvelope(raw); err == nil {
		t.Fatalf("DecodeMessageEnvelope() error = nil, want unknown field rejection")
	}
}

func TestDecodeMessageEnvelopeRejectsBadTimestamp(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte(`{"message_id":"m1","text":"hi","sent_at":"yesterday"}`))
	if _, err := DecodeMessageEnvelope(raw); err == nil || !strings.Contains(err.Error(), "RFC3339") {
		t.Fatalf("DecodeMessageEnvelope() error = %v, want RFC3339 complaint", err)
	}
}

func TestConversationKeyRoundTrip(t *testing.T) {
	key, err := BuildWhatsAppConversationKey("551199999")
	if err != nil {
		t.Fatalf("BuildWhatsAppConversationKey() error = %v", err)
	}
	if key != "wa:551199999" {
		t.Fatalf("key = %q, want wa:551199999", key)
	}
	id, err := UserIDFromConversationKey(key)
	if err != nil {
		t.Fatalf("UserIDFromConversationKey() error = %v", err)
	}
	if id != "551199999" {
		t.Fatalf("id = %q, want 551199999", id)
	}
}

func TestConversationKeyRejectsSpacesAndEmpty(t *testing.T) {
	if _, err := BuildWhatsAppConversationKey(""); err == nil {
		t.Fatalf("empty id accepted")
	}
	if _, err := BuildWhatsAppConversationKey("55 11"); err == nil {
		t.Fatalf("id with spaces accepted")
	}
	if _, err := UserIDFromConversationKey("tg:123"); err == nil {
		t.Fatalf("foreign key accepted")
	}
}

func TestInprocDeliversInPublishOrder(t *testing.T) {
	b := NewInproc()
	ch := b.Subscribe(TopicChatMessage)

	first := validMessage(t)
	second := validMessage(t)
	second.ID = "bus_02"

	if err := b.Publish(context.Background(), first); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := b.Publish(context.Background(), second); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got := <-ch; got.ID != "bus_01" {
		t.Fatalf("first delivery = %q, want bus_01", got.ID)
	}
	if got := <-ch; got.ID != "bus_02" {
		t.Fatalf("second delivery = %q, want bus_02", got.ID)
	}
}

func TestInprocRejectsInvalidMessage(t *testing.T) {
	b := NewInproc()
	m := validMessage(t)
	m.ID = ""
	if err := b.Publish(context.Background(), m); err == nil {
		t.Fatalf("Publish() error = nil, want validation error")
	}
}

func TestDeduperEvictsOldest(t *testing.T) {
	d := NewDeduper(2)
	if d.Seen("a") {
		t.Fatalf("fresh key reported seen")
	}
	if !d.Seen("a") {
		t.Fatalf("repeated key not reported seen")
	}
	d.Seen("b")
	d.Seen("c") // evicts a
	if d.Seen("a") {
		t.Fatalf("evicted key still reported seen")
	}
}
