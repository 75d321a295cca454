// internal/report/weekly_test.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-commit-notifier/internal/model"
	"github-commit-notifier/internal/notify"
	"github-commit-notifier/internal/store"
	"github-commit-notifier/internal/store/storetest"
)

type countingSender struct {
	mu       sync.Mutex
	messages []string
	photos   int
}

func (s *countingSender) SendMarkdown(chatID, threadID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return nil
}

func (s *countingSender) SendPhoto(chatID, threadID int64, filename string, png []byte, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPreviousWeek(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	t.Run("midweek", func(t *testing.T) {
		now := time.Date(2025, 8, 20, 8, 0, 0, 0, loc) // Wednesday
		start, end := previousWeek(now)
		assert.Equal(t, time.Date(2025, 8, 11, 0, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 8, 18, 0, 0, 0, 0, loc).Add(-time.Nanosecond), end)
	})

	t.Run("monday morning reports the week that just ended", func(t *testing.T) {
		now := time.Date(2025, 8, 18, 8, 0, 0, 0, loc) // Monday
		start, end := previousWeek(now)
		assert.Equal(t, time.Date(2025, 8, 11, 0, 0, 0, 0, loc), start)
		assert.True(t, end.Before(time.Date(2025, 8, 18, 0, 0, 0, 0, loc)))
	})

	t.Run("sunday still targets the last full week", func(t *testing.T) {
		now := time.Date(2025, 8, 24, 23, 0, 0, 0, loc) // Sunday
		start, _ := previousWeek(now)
		assert.Equal(t, time.Date(2025, 8, 11, 0, 0, 0, 0, loc), start)
	})
}

func commitBy(authorID int64, login string, at time.Time) model.CommitWithAuthor {
	return model.CommitWithAuthor{
		Commit:            model.Commit{AuthorID: authorID, CommittedAt: at},
		AuthorGithubLogin: login,
	}
}

func TestRankAuthors(t *testing.T) {
	base := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)

	t.Run("orders by count descending", func(t *testing.T) {
		ranking := rankAuthors([]model.CommitWithAuthor{
			commitBy(1, "alice", base),
			commitBy(2, "bob", base.Add(time.Hour)),
			commitBy(2, "bob", base.Add(2*time.Hour)),
			commitBy(2, "bob", base.Add(3*time.Hour)),
			commitBy(1, "alice", base.Add(4*time.Hour)),
		})
		require.Len(t, ranking, 2)
		assert.Equal(t, "bob", ranking[0].GithubLogin)
		assert.Equal(t, 3, ranking[0].Count)
		assert.Equal(t, "alice", ranking[1].GithubLogin)
		assert.Equal(t, 2, ranking[1].Count)
	})

	t.Run("equal counts keep first-seen order", func(t *testing.T) {
		ranking := rankAuthors([]model.CommitWithAuthor{
			commitBy(1, "alice", base),
			commitBy(2, "bob", base.Add(time.Minute)),
			commitBy(2, "bob", base.Add(2*time.Minute)),
			commitBy(1, "alice", base.Add(3*time.Minute)),
		})
		require.Len(t, ranking, 2)
		assert.Equal(t, "alice", ranking[0].GithubLogin, "alice appeared first in query order")
		assert.Equal(t, "bob", ranking[1].GithubLogin)
	})

	t.Run("empty input yields empty ranking", func(t *testing.T) {
		assert.Empty(t, rankAuthors(nil))
	})
}

func newTestAggregator(q store.Querier, sender notify.Sender) *Aggregator {
	a := NewAggregator(q, notify.NewDispatcher(sender, testLogger()), testLogger(), time.UTC)
	a.now = func() time.Time {
		return time.Date(2025, 8, 20, 8, 0, 0, 0, time.UTC)
	}
	return a
}

func TestAggregator_Run_IsolatesRepositoryFailures(t *testing.T) {
	mockQ := new(storetest.MockQuerier)
	sender := &countingSender{}
	a := newTestAggregator(mockQ, sender)

	broken := model.Repository{ID: 1, FullName: "a/broken"}
	healthy := model.Repository{ID: 2, FullName: "a/healthy"}
	commits := []model.CommitWithAuthor{
		commitBy(7, "alice", time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)),
	}

	mockQ.On("ListRepositories", mock.Anything).Return([]model.Repository{broken, healthy}, nil).Once()
	mockQ.On("ListCommitsInWindow", mock.Anything, mock.MatchedBy(func(arg store.CommitWindowParams) bool {
		return arg.RepositoryID == 1
	})).Return([]model.CommitWithAuthor(nil), errors.New("query timeout")).Once()
	mockQ.On("ListCommitsInWindow", mock.Anything, mock.MatchedBy(func(arg store.CommitWindowParams) bool {
		return arg.RepositoryID == 2
	})).Return(commits, nil).Once()
	mockQ.On("GetBindingsByRepoID", mock.Anything, int64(2)).
		Return([]model.ChatBinding{{ChatID: 100}}, nil).Once()
	mockQ.On("CreateWeeklyReport", mock.Anything, mock.MatchedBy(func(arg store.CreateWeeklyReportParams) bool {
		return arg.RepositoryID == 2
	})).Return(model.WeeklyReport{ID: 1}, nil).Once()

	a.Run(context.Background())

	mockQ.AssertExpectations(t)
	mockQ.AssertNumberOfCalls(t, "CreateWeeklyReport", 1)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "alice")
	assert.Equal(t, 1, sender.photos)
}

func TestAggregator_Run_EmptyWindowStillPersistsSnapshot(t *testing.T) {
	mockQ := new(storetest.MockQuerier)
	sender := &countingSender{}
	a := newTestAggregator(mockQ, sender)

	repo := model.Repository{ID: 3, FullName: "a/quiet"}
	mockQ.On("ListRepositories", mock.Anything).Return([]model.Repository{repo}, nil).Once()
	mockQ.On("ListCommitsInWindow", mock.Anything, mock.Anything).
		Return([]model.CommitWithAuthor(nil), nil).Once()
	mockQ.On("GetBindingsByRepoID", mock.Anything, int64(3)).
		Return([]model.ChatBinding(nil), nil).Once()
	mockQ.On("CreateWeeklyReport", mock.Anything, mock.MatchedBy(func(arg store.CreateWeeklyReportParams) bool {
		var stats map[string]any
		if err := json.Unmarshal(arg.Stats, &stats); err != nil {
			return false
		}
		return arg.RepositoryID == 3 && len(stats) == 0
	})).Return(model.WeeklyReport{ID: 2}, nil).Once()

	a.Run(context.Background())

	mockQ.AssertExpectations(t)
	// No bindings: nothing delivered, no chart, snapshot still written.
	assert.Empty(t, sender.messages)
	assert.Equal(t, 0, sender.photos)
}

func TestAggregator_Run_SnapshotSurvivesBindingLookupFailure(t *testing.T) {
	mockQ := new(storetest.MockQuerier)
	sender := &countingSender{}
	a := newTestAggregator(mockQ, sender)

	repo := model.Repository{ID: 4, FullName: "a/b"}
	mockQ.On("ListRepositories", mock.Anything).Return([]model.Repository{repo}, nil).Once()
	mockQ.On("ListCommitsInWindow", mock.Anything, mock.Anything).
		Return([]model.CommitWithAuthor(nil), nil).Once()
	mockQ.On("GetBindingsByRepoID", mock.Anything, int64(4)).
		Return([]model.ChatBinding(nil), errors.New("connection reset")).Once()
	mockQ.On("CreateWeeklyReport", mock.Anything, mock.Anything).
		Return(model.WeeklyReport{ID: 3}, nil).Once()

	a.Run(context.Background())

	mockQ.AssertExpectations(t)
	assert.Empty(t, sender.messages)
}

func TestMarshalStats(t *testing.T) {
	stats, err := marshalStats([]authorRank{
		{AuthorID: 7, GithubLogin: "alice", TelegramName: "alice_tg", Count: 5},
	})
	require.NoError(t, err)

	var decoded map[string]statEntry
	require.NoError(t, json.Unmarshal(stats, &decoded))
	assert.Equal(t, statEntry{Count: 5, GithubLogin: "alice", TelegramName: "alice_tg"}, decoded["7"])
}
