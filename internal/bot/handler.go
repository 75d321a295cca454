// internal/bot/handler.go
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sessionKey struct {
	ChatID int64
	UserID int64
}

// Handler runs the long-polling update loop and routes messages to the
// command layer. Sessions are keyed per (chat, user) so parallel dialogs in
// one group don't trample each other.
type Handler struct {
	bot      *tgbotapi.BotAPI
	commands *Commands
	logger   *slog.Logger

	sessions map[sessionKey]*Session
}

func NewHandler(api *tgbotapi.BotAPI, commands *Commands, logger *slog.Logger) *Handler {
	return &Handler{
		bot:      api,
		commands: commands,
		logger:   logger,
		sessions: make(map[sessionKey]*Session),
	}
}

// Run blocks, consuming updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	if err := h.setMyCommands(); err != nil {
		h.logger.Warn("Failed to register bot commands", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		h.bot.StopReceivingUpdates()
	}()

	for update := range updates {
		m := update.Message
		if m == nil || m.From == nil {
			continue
		}
		h.logger.Debug("Update received", "chat_id", m.Chat.ID, "user_id", m.From.ID, "text", m.Text)

		s := h.getSession(m.Chat.ID, m.From.ID)
		reply := h.commands.Handle(ctx, s, Input{
			Command:  m.Command(),
			Args:     m.CommandArguments(),
			Text:     m.Text,
			ChatID:   m.Chat.ID,
			UserID:   m.From.ID,
			UserName: displayName(m.From),
		})
		if reply == "" {
			continue
		}

		msg := tgbotapi.NewMessage(m.Chat.ID, reply)
		msg.ReplyToMessageID = m.MessageID
		if _, err := h.bot.Send(msg); err != nil {
			h.logger.Error("Failed to send reply", "chat_id", m.Chat.ID, "error", err)
		}
	}
}

func (h *Handler) getSession(chatID, userID int64) *Session {
	key := sessionKey{ChatID: chatID, UserID: userID}
	if s, ok := h.sessions[key]; ok {
		return s
	}
	s := &Session{State: StateIdle}
	h.sessions[key] = s
	return s
}

func (h *Handler) setMyCommands() error {
	commands := []tgbotapi.BotCommand{
		{Command: "addrepo", Description: "Register a repository and bind it to this chat"},
		{Command: "removerepo", Description: "Unbind a repository from this chat"},
		{Command: "repos", Description: "List repositories bound to this chat"},
		{Command: "link", Description: "Link your Telegram account to a GitHub login"},
		{Command: "help", Description: "Show usage"},
	}
	_, err := h.bot.Request(tgbotapi.NewSetMyCommands(commands...))
	return err
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
