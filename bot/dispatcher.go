package bot

import (
	"context"
	"log/slog"
	"sync"
)

// Sender delivers a reply text back to a conversation on the messaging
// transport.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
}

type job struct {
	UserID string
	Text   string
}

type userWorker struct {
	jobs chan job
}

type DispatcherOptions struct {
	Responder      *Responder
	Sender         Sender
	Replies        Replies
	Logger         *slog.Logger
	MaxConcurrency int
}

// Dispatcher classifies inbound messages and routes them to a command
// reply or the AI path. Messages are processed serially per user and in
// parallel across users, with a global cap on concurrent AI exchanges.
type Dispatcher struct {
	responder *Responder
	sender    Sender
	replies   Replies
	logger    *slog.Logger
	sem       chan struct{}

	mu      sync.Mutex
	workers map[string]*userWorker
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 3
	}
	return &Dispatcher{
		responder: opts.Responder,
		sender:    opts.Sender,
		replies:   opts.Replies,
		logger:    logger,
		sem:       make(chan struct{}, maxConc),
		workers:   make(map[string]*userWorker),
	}
}

// HandleInbound enqueues one inbound message. It returns immediately;
// the user's worker goroutine processes messages in arrival order.
func (d *Dispatcher) HandleInbound(userID, text string) {
	d.mu.Lock()
	w := d.workers[userID]
	if w == nil {
		w = &userWorker{jobs: make(chan job, 16)}
		d.workers[userID] = w
		go d.runWorker(w)
	}
	d.mu.Unlock()
	w.jobs <- job{UserID: userID, Text: text}
}

func (d *Dispatcher) runWorker(w *userWorker) {
	for j := range w.jobs {
		d.sem <- struct{}{}
		d.process(j.UserID, j.Text)
		<-d.sem
	}
}

// process handles exactly one inbound message. A fault in one message
// must never take down the dispatch loop or affect other users, so any
// panic is answered with a generic apology and swallowed here.
func (d *Dispatcher) process(userID, text string) {
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("message_handling_fault", "user_id", userID, "panic", rec)
			d.send(ctx, userID, d.replies.Fault)
		}
	}()

	c := Classify(text)
	switch c.Kind {
	case KindHelp:
		d.send(ctx, userID, d.replies.Help)
	case KindInfo:
		d.send(ctx, userID, d.replies.Info)
	case KindAIEmpty:
		d.send(ctx, userID, d.replies.Usage)
	case KindAI, KindFreeform:
		d.respondAI(ctx, userID, c.Prompt)
	}
}

func (d *Dispatcher) respondAI(ctx context.Context, userID, prompt string) {
	if !d.responder.Available() {
		d.send(ctx, userID, d.replies.Unconfigured)
		return
	}

	// Backend latency is unbounded from the user's point of view; ack
	// before calling out.
	d.send(ctx, userID, d.replies.Thinking)

	reply := d.responder.Respond(ctx, userID, prompt)
	switch reply.Outcome {
	case OutcomeSuccess:
		d.send(ctx, userID, reply.Text)
	case OutcomeFailed:
		d.send(ctx, userID, d.replies.Apology)
	case OutcomeUnavailable:
		d.send(ctx, userID, d.replies.Unconfigured)
	}
}

func (d *Dispatcher) send(ctx context.Context, to, text string) {
	if err := d.sender.SendText(ctx, to, text); err != nil {
		d.logger.Warn("send_reply_failed", "to", to, "error", err.Error())
	}
}
