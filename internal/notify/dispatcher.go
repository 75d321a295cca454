// internal/notify/dispatcher.go
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github-commit-notifier/internal/model"
)

// Sender delivers a single message to a single Telegram destination.
// ThreadID 0 targets the chat itself rather than a forum topic.
type Sender interface {
	SendMarkdown(chatID, threadID int64, text string) error
	SendPhoto(chatID, threadID int64, filename string, png []byte, caption string) error
}

// Dispatcher fans one formatted message out to a set of chat bindings.
// Destinations are independent: sends run in parallel and a failure on one
// is logged and counted, never propagated to the others or the caller.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch sends text to every destination, at most once each, and returns
// the number of successful deliveries. An empty destination set is a logged
// no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, destinations []model.ChatBinding) int {
	return d.fanOut(ctx, destinations, func(dest model.ChatBinding) error {
		return d.sender.SendMarkdown(dest.ChatID, dest.ThreadID, text)
	})
}

// DispatchPhoto sends a PNG attachment to every destination with the same
// failure isolation as Dispatch.
func (d *Dispatcher) DispatchPhoto(ctx context.Context, filename string, png []byte, caption string, destinations []model.ChatBinding) int {
	return d.fanOut(ctx, destinations, func(dest model.ChatBinding) error {
		return d.sender.SendPhoto(dest.ChatID, dest.ThreadID, filename, png, caption)
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, destinations []model.ChatBinding, send func(model.ChatBinding) error) int {
	if len(destinations) == 0 {
		d.logger.Info("No chat bindings for message, nothing to deliver")
		return 0
	}

	var delivered atomic.Int64
	g, _ := errgroup.WithContext(ctx)
	for _, dest := range destinations {
		dest := dest
		g.Go(func() error {
			if err := send(dest); err != nil {
				d.logger.Error("Failed to deliver message",
					"chat_id", dest.ChatID, "thread_id", dest.ThreadID, "error", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}
