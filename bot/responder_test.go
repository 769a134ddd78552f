package bot

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/soff-io/warelay/conversation"
	"github.com/soff-io/warelay/llm"
)

type fakeClient struct {
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeClient) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.reply}, nil
}

func newTestResponder(client llm.Client) (*Responder, *conversation.Store) {
	store := conversation.NewStore()
	return NewResponder(client, "gpt-3.5-turbo", store, slog.Default()), store
}

func TestRespondSuccessAppendsBothTurns(t *testing.T) {
	fc := &fakeClient{reply: "Hi there!"}
	r, store := newTestResponder(fc)

	got := r.Respond(context.Background(), "alice", "hello")
	if got.Outcome != OutcomeSuccess {
		t.Fatalf("Respond() outcome = %v, want OutcomeSuccess", got.Outcome)
	}
	if got.Text != "Hi there!" {
		t.Fatalf("Respond() text = %q, want %q", got.Text, "Hi there!")
	}

	h := store.History("alice")
	if len(h) != 2 {
		t.Fatalf("history length = %d, want 2", len(h))
	}
	if h[0].Role != llm.RoleUser || h[0].Content != "hello" {
		t.Fatalf("history[0] = %+v, want user hello", h[0])
	}
	if h[1].Role != llm.RoleAssistant || h[1].Content != "Hi there!" {
		t.Fatalf("history[1] = %+v, want assistant reply", h[1])
	}
}

func TestRespondSendsSystemPromptAndFullHistory(t *testing.T) {
	fc := &fakeClient{reply: "ok"}
	r, _ := newTestResponder(fc)

	r.Respond(context.Background(), "alice", "first")
	r.Respond(context.Background(), "alice", "second")

	if len(fc.requests) != 2 {
		t.Fatalf("backend calls = %d, want 2", len(fc.requests))
	}
	req := fc.requests[1]
	if req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != systemPrompt {
		t.Fatalf("request[0] = %+v, want system prompt", req.Messages[0])
	}
	// system + (user, assistant, user) — the freshly appended turn is
	// included in the request.
	if len(req.Messages) != 4 {
		t.Fatalf("request messages = %d, want 4", len(req.Messages))
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != llm.RoleUser || last.Content != "second" {
		t.Fatalf("last request message = %+v, want user second", last)
	}
	if req.MaxTokens != maxResponseTokens {
		t.Fatalf("request max tokens = %d, want %d", req.MaxTokens, maxResponseTokens)
	}
	if req.Temperature != responseTemperature {
		t.Fatalf("request temperature = %v, want %v", req.Temperature, responseTemperature)
	}
}

func TestRespondFailureLeavesDanglingUserTurn(t *testing.T) {
	fc := &fakeClient{err: fmt.Errorf("connection reset")}
	r, store := newTestResponder(fc)

	got := r.Respond(context.Background(), "alice", "hello")
	if got.Outcome != OutcomeFailed {
		t.Fatalf("Respond() outcome = %v, want OutcomeFailed", got.Outcome)
	}

	h := store.History("alice")
	if len(h) != 1 {
		t.Fatalf("history length = %d, want 1", len(h))
	}
	if h[0].Role != llm.RoleUser {
		t.Fatalf("history[0] role = %q, want user", h[0].Role)
	}
}

func TestRespondUnavailableLeavesHistoryUntouched(t *testing.T) {
	r, store := newTestResponder(nil)

	got := r.Respond(context.Background(), "alice", "hello")
	if got.Outcome != OutcomeUnavailable {
		t.Fatalf("Respond() outcome = %v, want OutcomeUnavailable", got.Outcome)
	}
	if n := store.Len("alice"); n != 0 {
		t.Fatalf("history length = %d, want 0", n)
	}
}

func TestRespondOneAttemptPerMessage(t *testing.T) {
	fc := &fakeClient{err: fmt.Errorf("boom")}
	r, _ := newTestResponder(fc)

	r.Respond(context.Background(), "alice", "hello")
	if len(fc.requests) != 1 {
		t.Fatalf("backend calls = %d, want exactly 1 (no retry)", len(fc.requests))
	}
}
