// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoFormat is returned when a repository argument is not in
// 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrUnknownRepository is returned when a webhook references a repository
// that was never registered, or one with no chat bindings. The pipeline must
// reject the delivery without persisting anything.
type ErrUnknownRepository struct {
	FullName string
}

func (e *ErrUnknownRepository) Error() string {
	return fmt.Sprintf("repository %q is not registered for notifications", e.FullName)
}

// ErrLoginAlreadyLinked is returned when a GitHub login is already claimed by
// a different Telegram account.
type ErrLoginAlreadyLinked struct {
	Login string
}

func (e *ErrLoginAlreadyLinked) Error() string {
	return fmt.Sprintf("github login %q is already linked to another telegram account", e.Login)
}
