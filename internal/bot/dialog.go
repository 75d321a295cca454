// internal/bot/dialog.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github-commit-notifier/internal/errors"
	"github-commit-notifier/internal/github"
	"github-commit-notifier/internal/store"
)

// State is the conversational state of one user in one chat. A command that
// arrives without its argument parks the dialog in an awaiting state; the
// next plain message is consumed as that argument.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingRepoName State = "awaiting_repo_name"
	StateAwaitingHandle   State = "awaiting_handle"
)

// Session holds the dialog state for one (chat, user) pair.
type Session struct {
	State State
}

// Input is one incoming Telegram message, reduced to what the command layer
// needs.
type Input struct {
	Command  string
	Args     string
	Text     string
	ChatID   int64
	UserID   int64
	UserName string
}

const helpText = `I forward GitHub push events into this chat.

/addrepo <owner/name> [topic-id] — register a repository and bind it here
/removerepo <owner/name> [topic-id] — unbind a repository from this chat
/repos — list repositories bound to this chat
/link <github-login> — link your Telegram account to a GitHub login

Point the repository's webhook (push events, JSON) at this bot's /github endpoint with the shared secret.`

// MetadataFetcher resolves canonical repository metadata at registration
// time. *github.Client satisfies it.
type MetadataFetcher interface {
	GetRepository(ctx context.Context, owner, name string) (*github.RepoMetadata, error)
}

// Commands executes bot commands against the store. It is Telegram-agnostic
// and returns the reply text; the handler owns the transport.
type Commands struct {
	store  store.Querier
	gh     MetadataFetcher
	logger *slog.Logger
}

func NewCommands(q store.Querier, gh MetadataFetcher, logger *slog.Logger) *Commands {
	return &Commands{store: q, gh: gh, logger: logger}
}

// Handle advances the session with one message and returns the reply text.
// An empty reply means the message needed no answer.
func (c *Commands) Handle(ctx context.Context, s *Session, in Input) string {
	if in.Command != "" {
		return c.handleCommand(ctx, s, in)
	}

	switch s.State {
	case StateAwaitingRepoName:
		s.State = StateIdle
		return c.addRepo(ctx, in, strings.TrimSpace(in.Text))
	case StateAwaitingHandle:
		s.State = StateIdle
		return c.link(ctx, in, strings.TrimSpace(in.Text))
	}
	return ""
}

func (c *Commands) handleCommand(ctx context.Context, s *Session, in Input) string {
	args := strings.TrimSpace(in.Args)

	switch in.Command {
	case "start", "help":
		s.State = StateIdle
		return helpText
	case "addrepo":
		if args == "" {
			s.State = StateAwaitingRepoName
			return "Send the repository as owner/name, optionally followed by a forum topic id."
		}
		s.State = StateIdle
		return c.addRepo(ctx, in, args)
	case "removerepo":
		s.State = StateIdle
		if args == "" {
			return "Usage: /removerepo <owner/name> [topic-id]"
		}
		return c.removeRepo(ctx, in, args)
	case "repos":
		s.State = StateIdle
		return c.listRepos(ctx, in)
	case "link":
		if args == "" {
			s.State = StateAwaitingHandle
			return "Send your GitHub login."
		}
		s.State = StateIdle
		return c.link(ctx, in, args)
	}
	return ""
}

// parseRepoArg splits "owner/name [topic-id]" and validates the identity.
func parseRepoArg(arg string) (fullName string, threadID int64, err error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return "", 0, &apperrors.ErrInvalidRepoFormat{Repo: arg}
	}
	fullName = fields[0]
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", 0, &apperrors.ErrInvalidRepoFormat{Repo: fullName}
	}
	if len(fields) == 2 {
		threadID, err = strconv.ParseInt(fields[1], 10, 64)
		if err != nil || threadID < 0 {
			return "", 0, fmt.Errorf("invalid topic id %q", fields[1])
		}
	}
	return fullName, threadID, nil
}

func (c *Commands) addRepo(ctx context.Context, in Input, arg string) string {
	fullName, threadID, err := parseRepoArg(arg)
	if err != nil {
		return "Usage: /addrepo <owner/name> [topic-id]"
	}
	parts := strings.SplitN(fullName, "/", 2)
	name := parts[1]
	url := "https://github.com/" + fullName

	// Best-effort canonical metadata; registration proceeds on API failure.
	if meta, err := c.gh.GetRepository(ctx, parts[0], parts[1]); err != nil {
		c.logger.Warn("Could not fetch repository metadata", "repo", fullName, "error", err)
	} else {
		fullName = meta.FullName
		name = meta.Name
		url = meta.HTMLURL
	}

	repo, err := c.store.UpsertRepository(ctx, store.UpsertRepositoryParams{
		FullName: fullName,
		Name:     name,
		URL:      url,
	})
	if err != nil {
		c.logger.Error("Failed to register repository", "repo", fullName, "error", err)
		return "Something went wrong, try again later."
	}

	if _, err := c.store.UpsertChatBinding(ctx, store.ChatBindingParams{
		RepositoryID: repo.ID,
		ChatID:       in.ChatID,
		ThreadID:     threadID,
	}); err != nil {
		c.logger.Error("Failed to bind chat", "repo", fullName, "chat_id", in.ChatID, "error", err)
		return "Something went wrong, try again later."
	}

	user, err := c.store.UpsertUserByTelegramID(ctx, in.UserID, in.UserName)
	if err == nil {
		err = c.store.LinkRepositoryUser(ctx, user.ID, repo.ID)
	}
	if err != nil {
		// Tracking link is auxiliary; the binding above already took effect.
		c.logger.Error("Failed to link user to repository", "repo", fullName, "user_id", in.UserID, "error", err)
	}

	return fmt.Sprintf("✅ Repository %s added. Commits will be posted here.", fullName)
}

func (c *Commands) removeRepo(ctx context.Context, in Input, arg string) string {
	fullName, threadID, err := parseRepoArg(arg)
	if err != nil {
		return "Usage: /removerepo <owner/name> [topic-id]"
	}

	repo, err := c.store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		var unknown *apperrors.ErrUnknownRepository
		if errors.As(err, &unknown) {
			return fmt.Sprintf("Repository %s is not registered.", fullName)
		}
		c.logger.Error("Failed to look up repository", "repo", fullName, "error", err)
		return "Something went wrong, try again later."
	}

	removed, err := c.store.DeleteChatBinding(ctx, store.ChatBindingParams{
		RepositoryID: repo.ID,
		ChatID:       in.ChatID,
		ThreadID:     threadID,
	})
	if err != nil {
		c.logger.Error("Failed to unbind chat", "repo", fullName, "chat_id", in.ChatID, "error", err)
		return "Something went wrong, try again later."
	}
	if !removed {
		return fmt.Sprintf("This chat was not bound to %s.", fullName)
	}
	return fmt.Sprintf("Repository %s unbound from this chat.", fullName)
}

func (c *Commands) listRepos(ctx context.Context, in Input) string {
	repos, err := c.store.ListRepositoriesByChatID(ctx, in.ChatID)
	if err != nil {
		c.logger.Error("Failed to list repositories", "chat_id", in.ChatID, "error", err)
		return "Something went wrong, try again later."
	}
	if len(repos) == 0 {
		return "No repositories are bound to this chat. Use /addrepo to register one."
	}
	var b strings.Builder
	b.WriteString("Repositories bound to this chat:\n")
	for _, r := range repos {
		fmt.Fprintf(&b, "• %s\n", r.FullName)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) link(ctx context.Context, in Input, login string) string {
	if login == "" || strings.ContainsAny(login, " /") {
		return "Usage: /link <github-login>"
	}

	user, err := c.store.LinkTelegramUser(ctx, store.LinkTelegramUserParams{
		TelegramID:   in.UserID,
		TelegramName: in.UserName,
		GithubLogin:  login,
	})
	if err != nil {
		var taken *apperrors.ErrLoginAlreadyLinked
		if errors.As(err, &taken) {
			return fmt.Sprintf("GitHub login %s is already linked to another Telegram account.", login)
		}
		c.logger.Error("Failed to link github login", "login", login, "user_id", in.UserID, "error", err)
		return "Something went wrong, try again later."
	}
	return fmt.Sprintf("Linked %s to GitHub login %s.", user.TelegramName, user.GithubLogin)
}
