// Package bus is the in-process event channel between the WhatsApp
// transport and the dispatch core. Inbound chat messages cross it as
// validated envelopes keyed by conversation.
package bus

import (
	"fmt"
	"regexp"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Channel string

const ChannelWhatsApp Channel = "whatsapp"

type BusMessage struct {
	ID              string    `json:"id"`
	Direction       Direction `json:"direction"`
	Channel         Channel   `json:"channel"`
	Topic           string    `json:"topic"`
	ConversationKey string    `json:"conversation_key"`
	ParticipantKey  string    `json:"participant_key"`
	IdempotencyKey  string    `json:"idempotency_key"`
	PayloadBase64   string    `json:"payload_base64"`
	CreatedAt       time.Time `json:"created_at"`
}

var topicPattern = regexp.MustCompile(`^[a-z0-9]+(?:\.[a-z0-9_]+)*$`)

func (m BusMessage) Validate() error {
	if err := validateRequiredCanonicalString("id", m.ID); err != nil {
		return err
	}
	switch m.Direction {
	case DirectionInbound, DirectionOutbound:
	default:
		return fmt.Errorf("direction must be inbound|outbound")
	}
	if m.Channel != ChannelWhatsApp {
		return fmt.Errorf("channel is invalid")
	}
	if err := validateRequiredCanonicalString("topic", m.Topic); err != nil {
		return err
	}
	if !topicPattern.MatchString(m.Topic) {
		return fmt.Errorf("topic is invalid")
	}
	if err := validateRequiredCanonicalString("conversation_key", m.ConversationKey); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("participant_key", m.ParticipantKey); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("idempotency_key", m.IdempotencyKey); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("payload_base64", m.PayloadBase64); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if _, err := DecodeMessageEnvelope(m.PayloadBase64); err != nil {
		return err
	}
	return nil
}

func (m BusMessage) Envelope() (MessageEnvelope, error) {
	return DecodeMessageEnvelope(m.PayloadBase64)
}
