// Package telegram carries operator commands over a Telegram bot chat.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/k1sta/wakebot/internal/engine"
)

// PollTimeout is the long-polling timeout of getUpdates, in seconds.
const PollTimeout = 60

type bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

type Transport struct {
	log     logr.Logger
	bot     bot
	updates tgbotapi.UpdatesChannel
}

func New(log logr.Logger, token string) (*Transport, error) {
	log = log.WithName("Telegram")
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate bot: %w", err)
	}
	log.Info("Authorized bot", "username", api.Self.UserName)
	return newTransport(log, api), nil
}

func newTransport(log logr.Logger, b bot) *Transport {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeout
	return &Transport{
		log:     log,
		bot:     b,
		updates: b.GetUpdatesChan(u),
	}
}

func (t *Transport) Receive(ctx context.Context) (engine.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return engine.Message{}, ctx.Err()
		case u, ok := <-t.updates:
			if !ok {
				return engine.Message{}, engine.ErrClosed
			}
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			m := engine.Message{
				Sender: strconv.FormatInt(u.Message.From.ID, 10),
				Text:   u.Message.Text,
			}
			if u.Message.Chat != nil {
				m.Chat = strconv.FormatInt(u.Message.Chat.ID, 10)
			}
			t.log.V(1).Info("Received message", "update_id", u.UpdateID, "sender", m.Sender, "chat", m.Chat)
			return m, nil
		}
	}
}

func (t *Transport) Send(ctx context.Context, chat string, text string, format engine.Format) (string, error) {
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chat, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = parseMode(format)

	sent, err := t.bot.Send(msg)
	if err != nil && msg.ParseMode != "" {
		// Host names may carry Markdown control characters.
		t.log.Info("Markdown rejected, resending as plain text", "chat", chat, "error", err.Error())
		msg.ParseMode = ""
		sent, err = t.bot.Send(msg)
	}
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (t *Transport) Edit(ctx context.Context, chat string, msgID string, text string, format engine.Format) error {
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chat, err)
	}
	mid, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", msgID, err)
	}
	edit := tgbotapi.NewEditMessageText(id, mid, text)
	edit.ParseMode = parseMode(format)
	if _, err := t.bot.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (t *Transport) Close() {
	t.bot.StopReceivingUpdates()
}

func parseMode(f engine.Format) string {
	if f == engine.FormatMarkdown {
		return tgbotapi.ModeMarkdown
	}
	return ""
}
