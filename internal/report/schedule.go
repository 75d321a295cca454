// internal/report/schedule.go
package report

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts slog to the cron.Logger interface.
type CronLogger struct {
	Logger *slog.Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Logger.Info(msg, keysAndValues...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Logger.Error(msg, append(keysAndValues, "error", err)...)
}

// Schedule wires the aggregator onto a cron instance. The scheduler runs in
// the configured location and never overlaps two runs: a trigger that fires
// while a run is still in progress is skipped.
func Schedule(ctx context.Context, a *Aggregator, spec string) (*cron.Cron, error) {
	logger := CronLogger{Logger: a.logger}
	c := cron.New(
		cron.WithLocation(a.loc),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { a.Run(ctx) }); err != nil {
		return nil, err
	}
	return c, nil
}
