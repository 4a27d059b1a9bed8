package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// MessageStatus is the lifecycle state of a scheduled message.
// Transitions are pending -> sent and pending -> failed; both are terminal.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// User is a message owner. Replies to delivered mail route back to the
// owner's address.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      pgtype.Text
	CreatedAt time.Time
}

// Message is a scheduled message record. Content fields are immutable after
// creation; the dispatch engine only touches status, sent_at, and
// error_message.
type Message struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	RecipientEmail string
	RecipientName  pgtype.Text
	Occasion       string
	Subject        string
	Body           string
	ScheduledAt    time.Time
	Status         MessageStatus
	SentAt         pgtype.Timestamptz
	ErrorMessage   pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DueMessage is a pending message joined with its owner's identity, as
// returned by FindDueMessages. OwnerEmail and OwnerName populate the
// reply-to of the outgoing mail.
type DueMessage struct {
	Message
	OwnerEmail string
	OwnerName  pgtype.Text
}
