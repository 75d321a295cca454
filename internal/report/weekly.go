// internal/report/weekly.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github-commit-notifier/internal/model"
	"github-commit-notifier/internal/notify"
	"github-commit-notifier/internal/store"
)

const (
	// Number of repositories to aggregate in parallel
	concurrency = 5
)

// Aggregator computes the previous week's per-author commit counts for every
// known repository, announces them to the bound chats and persists an
// immutable snapshot of each run.
type Aggregator struct {
	store      store.Querier
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	loc        *time.Location

	now func() time.Time
}

func NewAggregator(q store.Querier, dispatcher *notify.Dispatcher, logger *slog.Logger, loc *time.Location) *Aggregator {
	return &Aggregator{
		store:      q,
		dispatcher: dispatcher,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

// Run performs one aggregation pass. Repositories are processed
// independently: a failure on one is logged and the rest proceed.
func (a *Aggregator) Run(ctx context.Context) {
	weekStart, weekEnd := previousWeek(a.now().In(a.loc))
	a.logger.Info("Starting weekly report run",
		"week_start", weekStart.Format(time.RFC3339), "week_end", weekEnd.Format(time.RFC3339))

	repos, err := a.store.ListRepositories(ctx)
	if err != nil {
		a.logger.Error("Failed to list repositories for weekly report", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := a.reportRepository(gctx, repo, weekStart, weekEnd); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("Failed to produce weekly report", "repo", repo.FullName, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	a.logger.Info("Weekly report run finished", "repositories", len(repos))
}

// reportRepository builds, delivers and records the report for one
// repository. The snapshot is persisted regardless of whether any chat is
// bound; delivery is best-effort.
func (a *Aggregator) reportRepository(ctx context.Context, repo model.Repository, weekStart, weekEnd time.Time) error {
	commits, err := a.store.ListCommitsInWindow(ctx, store.CommitWindowParams{
		RepositoryID: repo.ID,
		From:         weekStart,
		To:           weekEnd,
	})
	if err != nil {
		return fmt.Errorf("querying commits: %w", err)
	}

	ranking := rankAuthors(commits)
	text := notify.FormatWeeklyReport(repo.FullName, weekStart, weekEnd, entriesOf(ranking), len(commits))

	bindings, err := a.store.GetBindingsByRepoID(ctx, repo.ID)
	if err != nil {
		// Delivery is best-effort; the audit snapshot below still happens.
		a.logger.Error("Failed to load chat bindings for weekly report",
			"repo", repo.FullName, "error", err)
		bindings = nil
	}

	delivered := a.dispatcher.Dispatch(ctx, text, bindings)
	if len(ranking) > 0 && len(bindings) > 0 {
		if png, err := renderAuthorChart(ranking); err != nil {
			a.logger.Error("Failed to render weekly chart", "repo", repo.FullName, "error", err)
		} else {
			a.dispatcher.DispatchPhoto(ctx, "weekly-commits.png", png, "", bindings)
		}
	}

	stats, err := marshalStats(ranking)
	if err != nil {
		return fmt.Errorf("encoding stats snapshot: %w", err)
	}
	if _, err := a.store.CreateWeeklyReport(ctx, store.CreateWeeklyReportParams{
		RepositoryID: repo.ID,
		WeekStart:    weekStart,
		WeekEnd:      weekEnd,
		Stats:        stats,
	}); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}

	a.logger.Info("Weekly report produced",
		"repo", repo.FullName, "commits", len(commits), "authors", len(ranking), "delivered", delivered)
	return nil
}

// authorRank is one author's aggregated slot for a single repository window.
type authorRank struct {
	AuthorID     int64
	GithubLogin  string
	TelegramName string
	Count        int
}

// rankAuthors groups the window's commits per author and orders the result
// by count descending. Ties keep first-seen-in-query-order: the input is
// sorted by commit time, so on equal counts the author who reached that
// count first holds the higher rank.
func rankAuthors(commits []model.CommitWithAuthor) []authorRank {
	index := make(map[int64]int)
	var ranking []authorRank

	for _, c := range commits {
		i, ok := index[c.AuthorID]
		if !ok {
			i = len(ranking)
			index[c.AuthorID] = i
			ranking = append(ranking, authorRank{
				AuthorID:     c.AuthorID,
				GithubLogin:  c.AuthorGithubLogin,
				TelegramName: c.AuthorTelegramName,
			})
		}
		ranking[i].Count++
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	return ranking
}

func entriesOf(ranking []authorRank) []notify.ReportEntry {
	entries := make([]notify.ReportEntry, len(ranking))
	for i, r := range ranking {
		entries[i] = notify.ReportEntry{
			GithubLogin:  r.GithubLogin,
			TelegramName: r.TelegramName,
			Count:        r.Count,
		}
	}
	return entries
}

// statEntry is the persisted per-author slot of a snapshot.
type statEntry struct {
	Count        int    `json:"count"`
	GithubLogin  string `json:"github_login"`
	TelegramName string `json:"telegram_name,omitempty"`
}

func marshalStats(ranking []authorRank) ([]byte, error) {
	stats := make(map[string]statEntry, len(ranking))
	for _, r := range ranking {
		stats[strconv.FormatInt(r.AuthorID, 10)] = statEntry{
			Count:        r.Count,
			GithubLogin:  r.GithubLogin,
			TelegramName: r.TelegramName,
		}
	}
	return json.Marshal(stats)
}

// previousWeek returns the bounds of the last full Monday-to-Sunday week
// before now, in now's location. The end bound is the last representable
// instant of that Sunday.
func previousWeek(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	thisMonday := time.Date(now.Year(), now.Month(), now.Day()-(weekday-1), 0, 0, 0, 0, now.Location())
	start := thisMonday.AddDate(0, 0, -7)
	end := thisMonday.Add(-time.Nanosecond)
	return start, end
}
