package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx operations used by Queries. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes hand-written SQL against the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by the given connection or pool.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email string
	Name  pgtype.Text
}

const createUser = `
INSERT INTO users (id, email, name)
VALUES ($1, $2, $3)
RETURNING id, email, name, created_at
`

// CreateUser inserts a user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, createUser, uuid.New(), arg.Email, arg.Name).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, name, created_at
FROM users
WHERE email = $1
`

// GetUserByEmail looks up a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	return u, err
}

// CreateMessageParams holds the fields for CreateMessage. ScheduledAt must
// already be normalized to UTC by the caller.
type CreateMessageParams struct {
	UserID         uuid.UUID
	RecipientEmail string
	RecipientName  pgtype.Text
	Occasion       string
	Subject        string
	Body           string
	ScheduledAt    time.Time
}

const createMessage = `
INSERT INTO messages (id, user_id, recipient_email, recipient_name, occasion, subject, body, scheduled_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
RETURNING id, user_id, recipient_email, recipient_name, occasion, subject, body,
          scheduled_at, status, sent_at, error_message, created_at, updated_at
`

// CreateMessage inserts a new pending scheduled message.
func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRow(ctx, createMessage,
		uuid.New(), arg.UserID, arg.RecipientEmail, arg.RecipientName,
		arg.Occasion, arg.Subject, arg.Body, arg.ScheduledAt,
	)
	return scanMessage(row)
}

const getMessageByID = `
SELECT id, user_id, recipient_email, recipient_name, occasion, subject, body,
       scheduled_at, status, sent_at, error_message, created_at, updated_at
FROM messages
WHERE id = $1
`

// GetMessageByID fetches a single message.
func (q *Queries) GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error) {
	return scanMessage(q.db.QueryRow(ctx, getMessageByID, id))
}

const listMessagesByUser = `
SELECT id, user_id, recipient_email, recipient_name, occasion, subject, body,
       scheduled_at, status, sent_at, error_message, created_at, updated_at
FROM messages
WHERE user_id = $1
ORDER BY scheduled_at DESC
`

// ListMessagesByUser returns all messages owned by a user, newest schedule
// first.
func (q *Queries) ListMessagesByUser(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessagesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// FindDueMessagesParams holds the fields for FindDueMessages.
type FindDueMessagesParams struct {
	Now   time.Time
	Limit int
}

const findDueMessages = `
SELECT m.id, m.user_id, m.recipient_email, m.recipient_name, m.occasion, m.subject, m.body,
       m.scheduled_at, m.status, m.sent_at, m.error_message, m.created_at, m.updated_at,
       u.email, u.name
FROM messages m
JOIN users u ON u.id = m.user_id
WHERE m.status = 'pending' AND m.scheduled_at <= $1
ORDER BY m.scheduled_at ASC, m.id ASC
LIMIT $2
`

// FindDueMessages returns at most limit pending messages whose scheduled_at
// is at or before now, joined with the owner identity needed for the
// reply-to header. Ordering by scheduled_at then id keeps batches
// reproducible.
func (q *Queries) FindDueMessages(ctx context.Context, arg FindDueMessagesParams) ([]DueMessage, error) {
	rows, err := q.db.Query(ctx, findDueMessages, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []DueMessage
	for rows.Next() {
		var d DueMessage
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.RecipientEmail, &d.RecipientName, &d.Occasion,
			&d.Subject, &d.Body, &d.ScheduledAt, &d.Status, &d.SentAt,
			&d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
			&d.OwnerEmail, &d.OwnerName,
		); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// MarkMessageSentParams holds the fields for MarkMessageSent.
type MarkMessageSentParams struct {
	ID     uuid.UUID
	SentAt time.Time
}

const markMessageSent = `
UPDATE messages
SET status = 'sent', sent_at = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
`

// MarkMessageSent transitions a message to sent, but only while it is still
// pending. The boolean result is false when the row was already terminal,
// which is how overlapping cycles detect they lost the race.
func (q *Queries) MarkMessageSent(ctx context.Context, arg MarkMessageSentParams) (bool, error) {
	tag, err := q.db.Exec(ctx, markMessageSent, arg.ID, arg.SentAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkMessageFailedParams holds the fields for MarkMessageFailed.
type MarkMessageFailedParams struct {
	ID    uuid.UUID
	Cause string
}

const markMessageFailed = `
UPDATE messages
SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
`

// MarkMessageFailed transitions a message to failed with the delivery error
// cause, under the same pending-only condition as MarkMessageSent.
func (q *Queries) MarkMessageFailed(ctx context.Context, arg MarkMessageFailedParams) (bool, error) {
	tag, err := q.db.Exec(ctx, markMessageFailed, arg.ID,
		pgtype.Text{String: arg.Cause, Valid: arg.Cause != ""})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const countMessagesByStatus = `
SELECT count(*) FROM messages WHERE status = $1
`

// CountMessagesByStatus returns the number of messages in the given state.
func (q *Queries) CountMessagesByStatus(ctx context.Context, status MessageStatus) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countMessagesByStatus, status).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.UserID, &m.RecipientEmail, &m.RecipientName, &m.Occasion,
		&m.Subject, &m.Body, &m.ScheduledAt, &m.Status, &m.SentAt,
		&m.ErrorMessage, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
