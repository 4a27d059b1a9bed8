package api

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sungwon/heartpost/internal/storage"
)

// mockQuerier implements storage.Querier with function fields so each test
// wires only the queries its handler touches.
type mockQuerier struct {
	createUserFn            func(ctx context.Context, arg storage.CreateUserParams) (storage.User, error)
	getUserByEmailFn        func(ctx context.Context, email string) (storage.User, error)
	createMessageFn         func(ctx context.Context, arg storage.CreateMessageParams) (storage.Message, error)
	getMessageByIDFn        func(ctx context.Context, id uuid.UUID) (storage.Message, error)
	listMessagesByUserFn    func(ctx context.Context, userID uuid.UUID) ([]storage.Message, error)
	findDueMessagesFn       func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error)
	markMessageSentFn       func(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error)
	markMessageFailedFn     func(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error)
	countMessagesByStatusFn func(ctx context.Context, status storage.MessageStatus) (int64, error)
}

var errNotWired = errors.New("query not wired in test")

func (m *mockQuerier) CreateUser(ctx context.Context, arg storage.CreateUserParams) (storage.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, arg)
	}
	return storage.User{}, errNotWired
}

func (m *mockQuerier) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return storage.User{}, errNotWired
}

func (m *mockQuerier) CreateMessage(ctx context.Context, arg storage.CreateMessageParams) (storage.Message, error) {
	if m.createMessageFn != nil {
		return m.createMessageFn(ctx, arg)
	}
	return storage.Message{}, errNotWired
}

func (m *mockQuerier) GetMessageByID(ctx context.Context, id uuid.UUID) (storage.Message, error) {
	if m.getMessageByIDFn != nil {
		return m.getMessageByIDFn(ctx, id)
	}
	return storage.Message{}, errNotWired
}

func (m *mockQuerier) ListMessagesByUser(ctx context.Context, userID uuid.UUID) ([]storage.Message, error) {
	if m.listMessagesByUserFn != nil {
		return m.listMessagesByUserFn(ctx, userID)
	}
	return nil, errNotWired
}

func (m *mockQuerier) FindDueMessages(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
	if m.findDueMessagesFn != nil {
		return m.findDueMessagesFn(ctx, arg)
	}
	return nil, errNotWired
}

func (m *mockQuerier) MarkMessageSent(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error) {
	if m.markMessageSentFn != nil {
		return m.markMessageSentFn(ctx, arg)
	}
	return false, errNotWired
}

func (m *mockQuerier) MarkMessageFailed(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error) {
	if m.markMessageFailedFn != nil {
		return m.markMessageFailedFn(ctx, arg)
	}
	return false, errNotWired
}

func (m *mockQuerier) CountMessagesByStatus(ctx context.Context, status storage.MessageStatus) (int64, error) {
	if m.countMessagesByStatusFn != nil {
		return m.countMessagesByStatusFn(ctx, status)
	}
	return 0, errNotWired
}

var _ storage.Querier = (*mockQuerier)(nil)
