package storage

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the interface over all database queries. Handlers and the
// dispatch engine depend on this rather than *Queries so tests can substitute
// fakes.
type Querier interface {
	// Users
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// Messages (authoring flow)
	CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error)
	ListMessagesByUser(ctx context.Context, userID uuid.UUID) ([]Message, error)

	// Messages (dispatch cycle)
	FindDueMessages(ctx context.Context, arg FindDueMessagesParams) ([]DueMessage, error)
	MarkMessageSent(ctx context.Context, arg MarkMessageSentParams) (bool, error)
	MarkMessageFailed(ctx context.Context, arg MarkMessageFailedParams) (bool, error)

	// Observability
	CountMessagesByStatus(ctx context.Context, status MessageStatus) (int64, error)
}

var _ Querier = (*Queries)(nil)
