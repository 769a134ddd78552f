// Package whatsapp adapts the whatsmeow WhatsApp client to the bot's
// bus and session state. It is plumbing only: no dispatch policy lives
// here.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soff-io/warelay/internal/bus"
	"github.com/soff-io/warelay/session"
)

type Options struct {
	// SessionDBPath is the SQLite file holding WhatsApp credentials.
	// Restarts with an intact file skip QR pairing.
	SessionDBPath string
	Bus           *bus.Inproc
	State         *session.State
	Logger        *slog.Logger
}

type Client struct {
	wa     *whatsmeow.Client
	bus    *bus.Inproc
	state  *session.State
	logger *slog.Logger
	dedupe *bus.Deduper
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.SessionDBPath == "" {
		return nil, fmt.Errorf("session db path is required")
	}
	if opts.Bus == nil || opts.State == nil {
		return nil, fmt.Errorf("bus and state are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+opts.SessionDBPath+"?_foreign_keys=on", waLog.Stdout("Database", "ERROR", false))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	c := &Client{
		wa:     whatsmeow.NewClient(device, waLog.Stdout("Client", "ERROR", false)),
		bus:    opts.Bus,
		state:  opts.State,
		logger: logger,
		dedupe: bus.NewDeduper(512),
	}
	c.wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// Connect brings the session up. Without stored credentials it renders
// the pairing QR code on stdout and waits for the scan in the background.
func (c *Client) Connect(ctx context.Context) error {
	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go func() {
			for evt := range qrChan {
				switch evt.Event {
				case "code":
					c.state.Apply(session.PairingCodeIssued{Code: evt.Code})
					c.logger.Info("wa_qr_generated")
					qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				case "timeout":
					c.logger.Warn("wa_qr_timeout")
				}
			}
		}()
		return nil
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.wa.Disconnect()
}

// SendText delivers a reply to a direct conversation identified by the
// phone-number-derived user id.
func (c *Client) SendText(ctx context.Context, to string, text string) error {
	jid := types.NewJID(to, types.DefaultUserServer)
	_, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	return nil
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.PairSuccess:
		c.logger.Info("wa_authenticated")
		c.state.Apply(session.Authenticated{})
	case *events.PairError:
		c.logger.Error("wa_auth_failed", "error", v.Error.Error())
		c.state.Apply(session.AuthFailed{Reason: v.Error.Error()})
	case *events.Connected:
		c.logger.Info("wa_connected")
		c.state.Apply(session.Ready{})
	case *events.Disconnected:
		c.logger.Warn("wa_disconnected")
		c.state.Apply(session.Disconnected{})
	case *events.LoggedOut:
		c.logger.Warn("wa_logged_out", "reason", v.Reason.String())
		c.state.Apply(session.Disconnected{Reason: v.Reason.String()})
	}
}

func (c *Client) handleMessage(v *events.Message) {
	if v.Info.IsFromMe || v.Info.IsGroup {
		return
	}
	text := extractText(v.Message)
	if text == "" {
		return
	}
	userID := v.Info.Sender.User

	msg, err := InboundBusMessage(userID, v.Info.ID, text, v.Info.Timestamp)
	if err != nil {
		c.logger.Warn("wa_inbound_invalid", "user_id", userID, "error", err.Error())
		return
	}
	if c.dedupe.Seen(msg.IdempotencyKey) {
		c.logger.Debug("wa_inbound_duplicate", "idempotency_key", msg.IdempotencyKey)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.logger.Warn("wa_inbound_publish_failed", "user_id", userID, "error", err.Error())
	}
}

// InboundBusMessage wraps one received WhatsApp message into a validated
// bus message on the chat topic.
func InboundBusMessage(userID, platformMessageID, text string, sentAt time.Time) (bus.BusMessage, error) {
	conversationKey, err := bus.BuildWhatsAppConversationKey(userID)
	if err != nil {
		return bus.BusMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return bus.BusMessage{}, fmt.Errorf("text is required")
	}
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	envelopeID := fmt.Sprintf("wa:%s:%s", userID, platformMessageID)
	payload, err := bus.EncodeMessageEnvelope(bus.MessageEnvelope{
		MessageID: envelopeID,
		Text:      text,
		SentAt:    sentAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return bus.BusMessage{}, err
	}
	return bus.BusMessage{
		ID:              "bus_" + uuid.NewString(),
		Direction:       bus.DirectionInbound,
		Channel:         bus.ChannelWhatsApp,
		Topic:           bus.TopicChatMessage,
		ConversationKey: conversationKey,
		ParticipantKey:  userID,
		IdempotencyKey:  bus.MessageIdempotencyKey(envelopeID),
		PayloadBase64:   payload,
		CreatedAt:       sentAt,
	}, nil
}

func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	return msg.GetExtendedTextMessage().GetText()
}
