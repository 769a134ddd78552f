package bus

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// MessageEnvelope is the canonical payload carried by a chat BusMessage.
type MessageEnvelope struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	SentAt    string `json:"sent_at"` // RFC3339
}

func (e MessageEnvelope) Validate() error {
	if err := validateRequiredCanonicalString("message_id", e.MessageID); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("text", e.Text); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("sent_at", e.SentAt); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, e.SentAt); err != nil {
		return fmt.Errorf("sent_at must be RFC3339")
	}
	return nil
}

func EncodeMessageEnvelope(env MessageEnvelope) (string, error) {
	if err := env.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal message envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

func DecodeMessageEnvelope(payloadBase64 string) (MessageEnvelope, error) {
	if err := validateRequiredCanonicalString("payload_base64", payloadBase64); err != nil {
		return MessageEnvelope{}, err
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadBase64)
	if err != nil {
		return MessageEnvelope{}, fmt.Errorf("payload_base64 decode failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payloadBytes))
	dec.DisallowUnknownFields()

	var env MessageEnvelope
	if err := dec.Decode(&env); err != nil {
		return MessageEnvelope{}, fmt.Errorf("invalid message envelope json: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return MessageEnvelope{}, fmt.Errorf("invalid message envelope json: trailing data")
	}

	if err := env.Validate(); err != nil {
		return MessageEnvelope{}, err
	}
	return env, nil
}

func validateRequiredCanonicalString(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s must not contain leading/trailing spaces", field)
	}
	return nil
}
