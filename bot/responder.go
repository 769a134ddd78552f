package bot

import (
	"context"
	"log/slog"

	"github.com/soff-io/warelay/conversation"
	"github.com/soff-io/warelay/llm"
)

const systemPrompt = "You are a helpful WhatsApp assistant. " +
	"Keep responses concise and friendly. " +
	"Use emojis occasionally to make conversations engaging."

// Generation policy. Fixed on purpose: the bot's voice is not a
// deployment knob.
const (
	maxResponseTokens   = 500
	responseTemperature = 0.7
)

type Outcome int

const (
	// OutcomeSuccess carries the generated text.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the backend call errored; the user turn stays
	// in history unanswered.
	OutcomeFailed
	// OutcomeUnavailable means no backend client is configured. Permanent
	// for the process lifetime; history is untouched.
	OutcomeUnavailable
)

type Reply struct {
	Outcome Outcome
	Text    string
}

// Responder coordinates one request/response cycle with the language
// model, reading and updating the conversation store.
type Responder struct {
	client llm.Client
	model  string
	store  *conversation.Store
	logger *slog.Logger
}

func NewResponder(client llm.Client, model string, store *conversation.Store, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{client: client, model: model, store: store, logger: logger}
}

// Available reports whether a backend client is configured.
func (r *Responder) Available() bool {
	return r.client != nil
}

// Respond runs a single exchange for userID. Each inbound message gets at
// most one backend attempt; failures are not retried.
func (r *Responder) Respond(ctx context.Context, userID, prompt string) Reply {
	if !r.Available() {
		return Reply{Outcome: OutcomeUnavailable}
	}

	r.store.AppendUserTurn(userID, prompt)

	history := r.store.History(userID)
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)

	res, err := r.client.Chat(ctx, llm.Request{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   maxResponseTokens,
		Temperature: responseTemperature,
	})
	if err != nil {
		r.logger.Warn("backend_call_failed", "user_id", userID, "error", err.Error())
		return Reply{Outcome: OutcomeFailed}
	}

	if err := r.store.AppendAssistantTurn(userID, res.Text); err != nil {
		// Entry exists because we appended the user turn above.
		r.logger.Error("history_append_failed", "user_id", userID, "error", err.Error())
	}
	r.logger.Info("backend_call_ok",
		"user_id", userID,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"duration", res.Duration.String(),
	)
	return Reply{Outcome: OutcomeSuccess, Text: res.Text}
}
