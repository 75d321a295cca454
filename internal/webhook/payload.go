// internal/webhook/payload.go
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PushEvent is the subset of a GitHub push event the pipeline consumes.
// Parsed once and validated before any field access.
type PushEvent struct {
	Ref        string        `json:"ref"`
	Repository RepositoryRef `json:"repository"`
	Sender     SenderRef     `json:"sender"`
	Commits    []PushCommit  `json:"commits"`
}

type RepositoryRef struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
	HTMLURL  string `json:"html_url"`
}

type SenderRef struct {
	Login string `json:"login"`
}

type PushCommit struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	URL       string       `json:"url"`
	Timestamp time.Time    `json:"timestamp"`
	Author    CommitAuthor `json:"author"`
	Added     []string     `json:"added"`
	Removed   []string     `json:"removed"`
	Modified  []string     `json:"modified"`
}

type CommitAuthor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ParsePushEvent decodes and validates a push event body.
func ParsePushEvent(body []byte) (*PushEvent, error) {
	var event PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decoding push event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

// Validate checks the fields the pipeline dereferences unconditionally.
func (e *PushEvent) Validate() error {
	if e.Repository.FullName == "" {
		return errors.New("push event is missing repository.full_name")
	}
	if e.Ref == "" {
		return errors.New("push event is missing ref")
	}
	if e.Commits == nil {
		return errors.New("push event is missing commits")
	}
	return nil
}

// Branch extracts the branch name from the ref ("refs/heads/main" -> "main").
func (e *PushEvent) Branch() string {
	parts := strings.Split(e.Ref, "/")
	return parts[len(parts)-1]
}

// Login returns the commit author's GitHub login when the payload carries
// one, falling back to the raw VCS author name.
func (a CommitAuthor) Login() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Name
}
