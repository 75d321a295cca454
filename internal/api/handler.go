// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github-commit-notifier/internal/errors"
	"github-commit-notifier/internal/model"
	"github-commit-notifier/internal/notify"
	"github-commit-notifier/internal/store"
	"github-commit-notifier/internal/webhook"
)

// Handler is the container for the webhook pipeline dependencies.
type Handler struct {
	store      store.Querier
	dispatcher *notify.Dispatcher
	secret     string
	logger     *slog.Logger
}

// NewRouter creates and configures a new chi router with all HTTP routes.
func NewRouter(q store.Querier, dispatcher *notify.Dispatcher, secret string, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:      q,
		dispatcher: dispatcher,
		secret:     secret,
		logger:     logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Post("/github", h.handleWebhook)

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWebhook runs the push-event pipeline: verify the signature over the
// raw body, parse and validate the payload, resolve the repository and its
// bindings, record each commit, then fan the notifications out. Responses
// are plain status text.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if !webhook.Verify(body, h.secret, r.Header.Get(webhook.SignatureHeader)) {
		h.logger.Warn("Rejected webhook with invalid signature", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	event, err := webhook.ParsePushEvent(body)
	if err != nil {
		h.logger.Warn("Rejected malformed webhook payload", "error", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	logger := h.logger.With("repo", event.Repository.FullName, "ref", event.Ref)

	repo, err := h.store.GetRepositoryByFullName(r.Context(), event.Repository.FullName)
	if err != nil {
		var unknown *apperrors.ErrUnknownRepository
		if errors.As(err, &unknown) {
			logger.Warn("Rejected webhook for unregistered repository")
			http.Error(w, "unknown repository", http.StatusBadRequest)
			return
		}
		logger.Error("Failed to look up repository", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	bindings, err := h.store.GetBindingsByRepoID(r.Context(), repo.ID)
	if err != nil {
		logger.Error("Failed to load chat bindings", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if len(bindings) == 0 {
		// Registered but not bound anywhere; refusing the delivery keeps the
		// commit table free of rows nobody asked for.
		logger.Warn("Rejected webhook for repository without chat bindings")
		http.Error(w, "repository has no chat bindings", http.StatusBadRequest)
		return
	}

	recorded, notified := h.processCommits(r.Context(), logger, repo, event, bindings)
	logger.Info("Processed push event",
		"commits", len(event.Commits), "recorded", recorded, "notified", notified)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// processCommits records and announces each commit independently, so one bad
// entry never aborts the rest of the batch. Duplicate deliveries are
// detected by the (repository, sha) constraint and not re-announced.
func (h *Handler) processCommits(ctx context.Context, logger *slog.Logger, repo model.Repository, event *webhook.PushEvent, bindings []model.ChatBinding) (recorded, notified int) {
	branch := event.Branch()

	for _, c := range event.Commits {
		if c.ID == "" {
			logger.Warn("Skipping commit without id")
			continue
		}

		login := c.Author.Login()
		if login == "" {
			login = event.Sender.Login
		}
		if login == "" {
			logger.Warn("Skipping commit without author identity", "sha", c.ID)
			continue
		}

		author, err := h.store.UpsertUserByGithubLogin(ctx, login)
		if err != nil {
			logger.Error("Failed to resolve commit author", "sha", c.ID, "login", login, "error", err)
			continue
		}

		inserted, err := h.store.CreateCommit(ctx, store.CreateCommitParams{
			RepositoryID:  repo.ID,
			AuthorID:      author.ID,
			SHA:           c.ID,
			Message:       c.Message,
			URL:           c.URL,
			Branch:        branch,
			AddedCount:    len(c.Added),
			RemovedCount:  len(c.Removed),
			ModifiedCount: len(c.Modified),
			CommittedAt:   c.Timestamp,
		})
		if err != nil {
			logger.Error("Failed to record commit", "sha", c.ID, "error", err)
			continue
		}
		if !inserted {
			logger.Info("Commit already recorded, skipping notification", "sha", c.ID)
			continue
		}
		recorded++

		var authorURL string
		if c.Author.Username != "" {
			authorURL = "https://github.com/" + c.Author.Username
		}
		text := notify.FormatCommit(notify.CommitMessage{
			RepoName:     repo.FullName,
			Branch:       branch,
			AuthorName:   c.Author.Name,
			AuthorURL:    authorURL,
			TelegramName: author.TelegramName,
			SHA:          c.ID,
			URL:          c.URL,
			Message:      c.Message,
			Added:        len(c.Added),
			Removed:      len(c.Removed),
			Modified:     len(c.Modified),
		})
		notified += h.dispatcher.Dispatch(ctx, text, bindings)
	}
	return recorded, notified
}
