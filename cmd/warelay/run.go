package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soff-io/warelay/bot"
	"github.com/soff-io/warelay/conversation"
	"github.com/soff-io/warelay/internal/bus"
	"github.com/soff-io/warelay/internal/logutil"
	"github.com/soff-io/warelay/internal/whatsapp"
	"github.com/soff-io/warelay/llm"
	"github.com/soff-io/warelay/providers/openai"
	"github.com/soff-io/warelay/session"
	"github.com/soff-io/warelay/status"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the WhatsApp bot and its status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			bind := strings.TrimSpace(flagOrViperString(cmd, "bind", "server.bind"))
			if bind == "" {
				bind = "0.0.0.0"
			}
			port := flagOrViperInt(cmd, "port", "server.port")
			if port <= 0 {
				port = 5000
			}
			botName := strings.TrimSpace(flagOrViperString(cmd, "bot-name", "server.bot_name"))
			if botName == "" {
				botName = "WhatsApp AI Chatbot"
			}

			replies := bot.DefaultReplies()
			if path := strings.TrimSpace(flagOrViperString(cmd, "replies-file", "replies.file")); path != "" {
				replies, err = bot.LoadReplies(path)
				if err != nil {
					return err
				}
			}

			// The backend handle exists iff a credential is configured;
			// its absence is permanent for the process lifetime.
			var client llm.Client
			apiKey := strings.TrimSpace(flagOrViperString(cmd, "openai-api-key", "openai.api_key"))
			if apiKey != "" {
				client = openai.New(flagOrViperString(cmd, "openai-base-url", "openai.base_url"), apiKey)
			} else {
				logger.Warn("openai_not_configured", "hint", "set WARELAY_OPENAI_API_KEY to enable AI replies")
			}
			model := strings.TrimSpace(flagOrViperString(cmd, "openai-model", "openai.model"))
			if model == "" {
				model = "gpt-3.5-turbo"
			}

			store := conversation.NewStore()
			state := session.NewState()
			eventBus := bus.NewInproc()
			inbound := eventBus.Subscribe(bus.TopicChatMessage)

			sessionDB := strings.TrimSpace(flagOrViperString(cmd, "session-db", "whatsapp.session_db"))
			if sessionDB == "" {
				sessionDB = "session.db"
			}
			wa, err := whatsapp.NewClient(cmd.Context(), whatsapp.Options{
				SessionDBPath: sessionDB,
				Bus:           eventBus,
				State:         state,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			dispatcher := bot.NewDispatcher(bot.DispatcherOptions{
				Responder:      bot.NewResponder(client, model, store, logger),
				Sender:         wa,
				Replies:        replies,
				Logger:         logger,
				MaxConcurrency: flagOrViperInt(cmd, "max-concurrency", "dispatch.max_concurrency"),
			})
			go func() {
				for msg := range inbound {
					env, err := msg.Envelope()
					if err != nil {
						logger.Warn("inbound_envelope_invalid", "error", err.Error())
						continue
					}
					userID, err := bus.UserIDFromConversationKey(msg.ConversationKey)
					if err != nil {
						logger.Warn("inbound_key_invalid", "error", err.Error())
						continue
					}
					logger.Info("message_received", "user_id", userID, "text_len", len(env.Text))
					dispatcher.HandleInbound(userID, env.Text)
				}
			}()

			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           status.NewReporter(state, botName).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				logger.Info("status_server_start", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("status_server_error", "error", err.Error())
				}
			}()

			if err := wa.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("whatsapp connect: %w", err)
			}
			logger.Info("bot_start", "bot", botName, "session_db", sessionDB, "model", model)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			sig := <-sigCh
			logger.Info("shutting_down", "signal", sig.String())

			wa.Disconnect()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status_server_shutdown_error", "error", err.Error())
			}
			return nil
		},
	}

	cmd.Flags().String("bind", "0.0.0.0", "Status server bind address.")
	cmd.Flags().Int("port", 5000, "Status server port.")
	cmd.Flags().String("bot-name", "WhatsApp AI Chatbot", "Name reported by the status endpoint.")
	cmd.Flags().String("session-db", "session.db", "SQLite file for WhatsApp session credentials.")
	cmd.Flags().String("replies-file", "", "YAML file overriding the canned reply texts.")
	cmd.Flags().String("openai-api-key", "", "OpenAI API key. Empty disables AI replies.")
	cmd.Flags().String("openai-base-url", "", "OpenAI-compatible base URL (default: https://api.openai.com).")
	cmd.Flags().String("openai-model", "gpt-3.5-turbo", "Chat completion model.")
	cmd.Flags().Int("max-concurrency", 3, "Max users processed concurrently.")

	return cmd
}
