// internal/store/storetest/mock.go
// Package storetest provides a testify mock of store.Querier shared by the
// unit tests of the packages built on the store.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github-commit-notifier/internal/model"
	"github-commit-notifier/internal/store"
)

// MockQuerier is a mock of the store.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) UpsertRepository(ctx context.Context, arg store.UpsertRepositoryParams) (model.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *MockQuerier) GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error) {
	args := m.Called(ctx, fullName)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *MockQuerier) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Repository), args.Error(1)
}

func (m *MockQuerier) ListRepositoriesByChatID(ctx context.Context, chatID int64) ([]model.Repository, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).([]model.Repository), args.Error(1)
}

func (m *MockQuerier) UpsertChatBinding(ctx context.Context, arg store.ChatBindingParams) (model.ChatBinding, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.ChatBinding), args.Error(1)
}

func (m *MockQuerier) DeleteChatBinding(ctx context.Context, arg store.ChatBindingParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuerier) GetBindingsByRepoID(ctx context.Context, repositoryID int64) ([]model.ChatBinding, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]model.ChatBinding), args.Error(1)
}

func (m *MockQuerier) UpsertUserByGithubLogin(ctx context.Context, login string) (model.User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) UpsertUserByTelegramID(ctx context.Context, telegramID int64, telegramName string) (model.User, error) {
	args := m.Called(ctx, telegramID, telegramName)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) LinkTelegramUser(ctx context.Context, arg store.LinkTelegramUserParams) (model.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) LinkRepositoryUser(ctx context.Context, userID, repositoryID int64) error {
	args := m.Called(ctx, userID, repositoryID)
	return args.Error(0)
}

func (m *MockQuerier) CreateCommit(ctx context.Context, arg store.CreateCommitParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuerier) ListCommitsInWindow(ctx context.Context, arg store.CommitWindowParams) ([]model.CommitWithAuthor, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]model.CommitWithAuthor), args.Error(1)
}

func (m *MockQuerier) CreateWeeklyReport(ctx context.Context, arg store.CreateWeeklyReportParams) (model.WeeklyReport, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.WeeklyReport), args.Error(1)
}
