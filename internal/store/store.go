// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github-commit-notifier/internal/errors"
	"github-commit-notifier/internal/model"
)

// DBTX is the subset of pgx operations the store needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is the persistence contract the pipeline, bot and aggregator are
// built against. Tests substitute a mock.
type Querier interface {
	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error)
	ListRepositories(ctx context.Context) ([]model.Repository, error)
	ListRepositoriesByChatID(ctx context.Context, chatID int64) ([]model.Repository, error)

	UpsertChatBinding(ctx context.Context, arg ChatBindingParams) (model.ChatBinding, error)
	DeleteChatBinding(ctx context.Context, arg ChatBindingParams) (bool, error)
	GetBindingsByRepoID(ctx context.Context, repositoryID int64) ([]model.ChatBinding, error)

	UpsertUserByGithubLogin(ctx context.Context, login string) (model.User, error)
	UpsertUserByTelegramID(ctx context.Context, telegramID int64, telegramName string) (model.User, error)
	LinkTelegramUser(ctx context.Context, arg LinkTelegramUserParams) (model.User, error)
	LinkRepositoryUser(ctx context.Context, userID, repositoryID int64) error

	CreateCommit(ctx context.Context, arg CreateCommitParams) (bool, error)
	ListCommitsInWindow(ctx context.Context, arg CommitWindowParams) ([]model.CommitWithAuthor, error)

	CreateWeeklyReport(ctx context.Context, arg CreateWeeklyReportParams) (model.WeeklyReport, error)
}

// Store implements Querier on top of a pgx connection or pool.
type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

type UpsertRepositoryParams struct {
	FullName string
	Name     string
	URL      string
}

// UpsertRepository creates the repository or refreshes its display name and
// URL. The unique constraint on full_name is the serialization point: a
// racing second writer degrades to an update, never a duplicate row.
func (s *Store) UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO repositories (full_name, name, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (full_name)
		DO UPDATE SET name = EXCLUDED.name, url = EXCLUDED.url, updated_at = now()
		RETURNING id, full_name, name, url, created_at, updated_at`,
		arg.FullName, arg.Name, arg.URL)
	return scanRepository(row)
}

func (s *Store) GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, full_name, name, url, created_at, updated_at
		FROM repositories WHERE full_name = $1`, fullName)
	repo, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, &apperrors.ErrUnknownRepository{FullName: fullName}
	}
	return repo, err
}

func (s *Store) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, full_name, name, url, created_at, updated_at
		FROM repositories ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRepositories(rows)
}

func (s *Store) ListRepositoriesByChatID(ctx context.Context, chatID int64) ([]model.Repository, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.full_name, r.name, r.url, r.created_at, r.updated_at
		FROM repositories r
		JOIN chat_bindings b ON b.repository_id = r.id
		WHERE b.chat_id = $1
		ORDER BY r.full_name`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRepositories(rows)
}

type ChatBindingParams struct {
	RepositoryID int64
	ChatID       int64
	ThreadID     int64
}

func (s *Store) UpsertChatBinding(ctx context.Context, arg ChatBindingParams) (model.ChatBinding, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO chat_bindings (repository_id, chat_id, thread_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (repository_id, chat_id, thread_id)
		DO UPDATE SET thread_id = EXCLUDED.thread_id
		RETURNING id, repository_id, chat_id, thread_id, created_at`,
		arg.RepositoryID, arg.ChatID, arg.ThreadID)
	var b model.ChatBinding
	err := row.Scan(&b.ID, &b.RepositoryID, &b.ChatID, &b.ThreadID, &b.CreatedAt)
	return b, err
}

// DeleteChatBinding removes the exact (repository, chat, thread) binding and
// reports whether anything was removed. Bindings for other threads of the
// same chat are untouched.
func (s *Store) DeleteChatBinding(ctx context.Context, arg ChatBindingParams) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM chat_bindings
		WHERE repository_id = $1 AND chat_id = $2 AND thread_id = $3`,
		arg.RepositoryID, arg.ChatID, arg.ThreadID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetBindingsByRepoID(ctx context.Context, repositoryID int64) ([]model.ChatBinding, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, repository_id, chat_id, thread_id, created_at
		FROM chat_bindings WHERE repository_id = $1 ORDER BY id`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bindings []model.ChatBinding
	for rows.Next() {
		var b model.ChatBinding
		if err := rows.Scan(&b.ID, &b.RepositoryID, &b.ChatID, &b.ThreadID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// UpsertUserByGithubLogin returns the user for a GitHub login, creating a
// placeholder row (telegram id 0) when the login has never been seen.
func (s *Store) UpsertUserByGithubLogin(ctx context.Context, login string) (model.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, telegram_name, github_login)
		VALUES (0, '', $1)
		ON CONFLICT (github_login) WHERE github_login <> ''
		DO UPDATE SET github_login = EXCLUDED.github_login
		RETURNING id, telegram_id, telegram_name, github_login, created_at`,
		login)
	return scanUser(row)
}

func (s *Store) UpsertUserByTelegramID(ctx context.Context, telegramID int64, telegramName string) (model.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, telegram_name, github_login)
		VALUES ($1, $2, '')
		ON CONFLICT (telegram_id) WHERE telegram_id <> 0
		DO UPDATE SET telegram_name = EXCLUDED.telegram_name
		RETURNING id, telegram_id, telegram_name, github_login, created_at`,
		telegramID, telegramName)
	return scanUser(row)
}

type LinkTelegramUserParams struct {
	TelegramID   int64
	TelegramName string
	GithubLogin  string
}

// LinkTelegramUser claims a GitHub login for a Telegram account. At most one
// Telegram account may hold a login; a claim on a login held by someone else
// fails with ErrLoginAlreadyLinked and has no side effects. Any previous row
// of the same account is released first so the partial unique index on
// telegram_id holds, and its repository tracking links move to the claimed
// row.
func (s *Store) LinkTelegramUser(ctx context.Context, arg LinkTelegramUserParams) (model.User, error) {
	var holderTelegramID int64
	err := s.db.QueryRow(ctx, `
		SELECT telegram_id FROM users WHERE github_login = $1`,
		arg.GithubLogin).Scan(&holderTelegramID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, err
	}
	if err == nil && holderTelegramID != 0 && holderTelegramID != arg.TelegramID {
		return model.User{}, &apperrors.ErrLoginAlreadyLinked{Login: arg.GithubLogin}
	}

	var releasedID int64
	err = s.db.QueryRow(ctx, `
		UPDATE users SET telegram_id = 0, telegram_name = ''
		WHERE telegram_id = $1 AND github_login <> $2
		RETURNING id`,
		arg.TelegramID, arg.GithubLogin).Scan(&releasedID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, telegram_name, github_login)
		VALUES ($1, $2, $3)
		ON CONFLICT (github_login) WHERE github_login <> ''
		DO UPDATE SET telegram_id = EXCLUDED.telegram_id, telegram_name = EXCLUDED.telegram_name
		WHERE users.telegram_id IN (0, EXCLUDED.telegram_id)
		RETURNING id, telegram_id, telegram_name, github_login, created_at`,
		arg.TelegramID, arg.TelegramName, arg.GithubLogin)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race for the login between the check above and the claim.
		return model.User{}, &apperrors.ErrLoginAlreadyLinked{Login: arg.GithubLogin}
	}
	if err != nil {
		return model.User{}, err
	}

	if releasedID != 0 && releasedID != user.ID {
		if err := s.moveRepositoryLinks(ctx, releasedID, user.ID); err != nil {
			return model.User{}, err
		}
	}
	return user, nil
}

// moveRepositoryLinks re-points tracking links from a released user row to
// the claimed one, dropping pairs the claimed row already has.
func (s *Store) moveRepositoryLinks(ctx context.Context, fromID, toID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE repository_users ru SET user_id = $1
		WHERE ru.user_id = $2 AND NOT EXISTS (
			SELECT 1 FROM repository_users d
			WHERE d.user_id = $1 AND d.repository_id = ru.repository_id)`,
		toID, fromID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		DELETE FROM repository_users WHERE user_id = $1`, fromID)
	return err
}

func (s *Store) LinkRepositoryUser(ctx context.Context, userID, repositoryID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO repository_users (user_id, repository_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, repository_id) DO NOTHING`,
		userID, repositoryID)
	return err
}

type CreateCommitParams struct {
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
}

// CreateCommit persists one commit and reports whether a row was inserted.
// Duplicate delivery of the same (repository, sha) is a no-op, not an error.
func (s *Store) CreateCommit(ctx context.Context, arg CreateCommitParams) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO commits (repository_id, author_id, sha, message, url, branch,
			added_count, removed_count, modified_count, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (repository_id, sha) DO NOTHING`,
		arg.RepositoryID, arg.AuthorID, arg.SHA, arg.Message, arg.URL, arg.Branch,
		arg.AddedCount, arg.RemovedCount, arg.ModifiedCount, arg.CommittedAt)
	if err != nil {
		return false, fmt.Errorf("inserting commit %s: %w", arg.SHA, err)
	}
	return tag.RowsAffected() > 0, nil
}

type CommitWindowParams struct {
	RepositoryID int64
	From         time.Time
	To           time.Time
}

// ListCommitsInWindow returns the repository's commits inside [From, To]
// joined to their authors, ordered by commit time then sha. The order is the
// aggregator's deterministic tie-break for equal counts.
func (s *Store) ListCommitsInWindow(ctx context.Context, arg CommitWindowParams) ([]model.CommitWithAuthor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.repository_id, c.author_id, c.sha, c.message, c.url, c.branch,
			c.added_count, c.removed_count, c.modified_count, c.committed_at, c.created_at,
			u.github_login, u.telegram_name
		FROM commits c
		JOIN users u ON u.id = c.author_id
		WHERE c.repository_id = $1 AND c.committed_at >= $2 AND c.committed_at <= $3
		ORDER BY c.committed_at ASC, c.sha ASC`,
		arg.RepositoryID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []model.CommitWithAuthor
	for rows.Next() {
		var c model.CommitWithAuthor
		if err := rows.Scan(&c.ID, &c.RepositoryID, &c.AuthorID, &c.SHA, &c.Message, &c.URL, &c.Branch,
			&c.AddedCount, &c.RemovedCount, &c.ModifiedCount, &c.CommittedAt, &c.CreatedAt,
			&c.AuthorGithubLogin, &c.AuthorTelegramName); err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

type CreateWeeklyReportParams struct {
	RepositoryID int64
	WeekStart    time.Time
	WeekEnd      time.Time
	Stats        []byte
}

func (s *Store) CreateWeeklyReport(ctx context.Context, arg CreateWeeklyReportParams) (model.WeeklyReport, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO weekly_reports (repository_id, week_start, week_end, stats)
		VALUES ($1, $2, $3, $4)
		RETURNING id, repository_id, week_start, week_end, stats, sent_at`,
		arg.RepositoryID, arg.WeekStart, arg.WeekEnd, arg.Stats)
	var r model.WeeklyReport
	err := row.Scan(&r.ID, &r.RepositoryID, &r.WeekStart, &r.WeekEnd, &r.Stats, &r.SentAt)
	return r, err
}

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(&r.ID, &r.FullName, &r.Name, &r.URL, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectRepositories(rows pgx.Rows) ([]model.Repository, error) {
	var repos []model.Repository
	for rows.Next() {
		var r model.Repository
		if err := rows.Scan(&r.ID, &r.FullName, &r.Name, &r.URL, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.TelegramName, &u.GithubLogin, &u.CreatedAt)
	return u, err
}
