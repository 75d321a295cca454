// internal/model/models.go
package model

import (
	"time"
)

// Repository is a GitHub repository the bot forwards commits for. FullName
// ("owner/name") is the stable external key.
type Repository struct {
	ID        int64
	FullName  string
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User links a Telegram account to a GitHub login. Rows created from webhook
// traffic start as placeholders (TelegramID 0) until /link reconciles them.
type User struct {
	ID           int64
	TelegramID   int64
	TelegramName string
	GithubLogin  string
	CreatedAt    time.Time
}

// ChatBinding is one delivery destination for a repository. ThreadID 0 means
// the chat itself rather than a forum topic.
type ChatBinding struct {
	ID           int64
	RepositoryID int64
	ChatID       int64
	ThreadID     int64
	CreatedAt    time.Time
}

// Commit is an immutable record of one pushed commit, unique per
// (repository, sha).
type Commit struct {
	ID            int64
	RepositoryID  int64
	AuthorID      int64
	SHA           string
	Message       string
	URL           string
	Branch        string
	AddedCount    int
	RemovedCount  int
	ModifiedCount int
	CommittedAt   time.Time
	CreatedAt     time.Time
}

// CommitWithAuthor is a commit row joined to its author, as read by the
// weekly aggregation query.
type CommitWithAuthor struct {
	Commit
	AuthorGithubLogin  string
	AuthorTelegramName string
}

// WeeklyReport is an append-only snapshot of one aggregation run for one
// repository. Stats holds the per-author counts as JSON; it is an audit
// trail, never read back for re-computation.
type WeeklyReport struct {
	ID           int64
	RepositoryID int64
	WeekStart    time.Time
	WeekEnd      time.Time
	Stats        []byte
	SentAt       time.Time
}
