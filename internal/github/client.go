// internal/github/client.go
package github

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// RepoMetadata is the subset of repository details the bot stores at
// registration time.
type RepoMetadata struct {
	FullName string
	Name     string
	HTMLURL  string
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. An empty token
// yields an unauthenticated client, which is enough for public repository
// metadata.
func NewClient(token string, logger *slog.Logger) *Client {
	if token == "" {
		return &Client{
			gh:     github.NewClient(nil),
			logger: logger,
		}
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:     github.NewClient(tc),
		logger: logger,
	}
}

// GetRepository fetches the canonical name and URL for owner/name.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*RepoMetadata, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched repository metadata", "full_name", repo.GetFullName())
	return &RepoMetadata{
		FullName: repo.GetFullName(),
		Name:     repo.GetName(),
		HTMLURL:  repo.GetHTMLURL(),
	}, nil
}
