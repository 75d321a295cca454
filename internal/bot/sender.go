// internal/bot/sender.go
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender implements notify.Sender on top of the Telegram Bot API. Requests
// are built from raw params because the typed configs predate forum topics
// and carry no message_thread_id field.
type Sender struct {
	bot *tgbotapi.BotAPI
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

func (s *Sender) SendMarkdown(chatID, threadID int64, text string) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", "MarkdownV2")
	params.AddBool("disable_web_page_preview", true)
	_, err := s.bot.MakeRequest("sendMessage", params)
	return err
}

func (s *Sender) SendPhoto(chatID, threadID int64, filename string, png []byte, caption string) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("caption", caption)
	files := []tgbotapi.RequestFile{{
		Name: "photo",
		Data: tgbotapi.FileBytes{Name: filename, Bytes: png},
	}}
	_, err := s.bot.UploadFiles("sendPhoto", params, files)
	return err
}
