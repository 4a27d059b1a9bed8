package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/sungwon/heartpost/internal/provider"
	"github.com/sungwon/heartpost/internal/storage"
)

// fakeQuerier implements storage.Querier with per-method function fields so
// each test only wires the queries it exercises.
type fakeQuerier struct {
	findDueMessagesFn   func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error)
	markMessageSentFn   func(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error)
	markMessageFailedFn func(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error)
}

func (f *fakeQuerier) CreateUser(ctx context.Context, arg storage.CreateUserParams) (storage.User, error) {
	return storage.User{}, errors.New("not implemented")
}

func (f *fakeQuerier) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return storage.User{}, errors.New("not implemented")
}

func (f *fakeQuerier) CreateMessage(ctx context.Context, arg storage.CreateMessageParams) (storage.Message, error) {
	return storage.Message{}, errors.New("not implemented")
}

func (f *fakeQuerier) GetMessageByID(ctx context.Context, id uuid.UUID) (storage.Message, error) {
	return storage.Message{}, errors.New("not implemented")
}

func (f *fakeQuerier) ListMessagesByUser(ctx context.Context, userID uuid.UUID) ([]storage.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeQuerier) FindDueMessages(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
	if f.findDueMessagesFn != nil {
		return f.findDueMessagesFn(ctx, arg)
	}
	return nil, nil
}

func (f *fakeQuerier) MarkMessageSent(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error) {
	if f.markMessageSentFn != nil {
		return f.markMessageSentFn(ctx, arg)
	}
	return true, nil
}

func (f *fakeQuerier) MarkMessageFailed(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error) {
	if f.markMessageFailedFn != nil {
		return f.markMessageFailedFn(ctx, arg)
	}
	return true, nil
}

func (f *fakeQuerier) CountMessagesByStatus(ctx context.Context, status storage.MessageStatus) (int64, error) {
	return 0, errors.New("not implemented")
}

// fakeProvider records sends and fails for recipients listed in failTo.
type fakeProvider struct {
	failTo map[string]error
	sent   []*provider.Message
}

func (f *fakeProvider) Send(ctx context.Context, msg *provider.Message) (*provider.DeliveryResult, error) {
	if err, ok := f.failTo[msg.To]; ok {
		return nil, err
	}
	f.sent = append(f.sent, msg)
	return &provider.DeliveryResult{
		ProviderMessageID: "prov-" + msg.ID,
		Status:            provider.StatusSent,
		Timestamp:         time.Now(),
	}, nil
}

func (f *fakeProvider) GetName() string { return "fake" }

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

func dueMessage(recipient string) storage.DueMessage {
	return storage.DueMessage{
		Message: storage.Message{
			ID:             uuid.New(),
			UserID:         uuid.New(),
			RecipientEmail: recipient,
			Occasion:       "birthday",
			Subject:        "Happy birthday!",
			Body:           "Wishing you the best.",
			ScheduledAt:    time.Now().UTC().Add(-time.Minute),
			Status:         storage.MessageStatusPending,
		},
		OwnerEmail: "owner@example.com",
		OwnerName:  pgtype.Text{String: "Owner", Valid: true},
	}
}

func newTestEngine(q storage.Querier, p provider.Provider) *Engine {
	return NewEngine(q, p, 50, zerolog.Nop())
}

func TestEngine_Run_MixedOutcomes(t *testing.T) {
	messages := []storage.DueMessage{
		dueMessage("first@example.com"),
		dueMessage("second@example.com"),
		dueMessage("third@example.com"),
	}

	var sentIDs, failedIDs []uuid.UUID
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return messages, nil
		},
		markMessageSentFn: func(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error) {
			sentIDs = append(sentIDs, arg.ID)
			return true, nil
		},
		markMessageFailedFn: func(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error) {
			failedIDs = append(failedIDs, arg.ID)
			if arg.Cause == "" {
				t.Error("expected a failure cause to be persisted")
			}
			return true, nil
		},
	}
	p := &fakeProvider{failTo: map[string]error{
		"second@example.com": errors.New("mailbox does not exist"),
	}}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Total != 3 || report.Sent != 2 || report.Failed != 1 {
		t.Errorf("expected total=3 sent=2 failed=1, got %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(report.Errors))
	}
	wantErr := fmt.Sprintf("message %s: mailbox does not exist", messages[1].ID)
	if report.Errors[0] != wantErr {
		t.Errorf("expected error %q, got %q", wantErr, report.Errors[0])
	}

	if len(sentIDs) != 2 || sentIDs[0] != messages[0].ID || sentIDs[1] != messages[2].ID {
		t.Errorf("unexpected sent status writes: %v", sentIDs)
	}
	if len(failedIDs) != 1 || failedIDs[0] != messages[1].ID {
		t.Errorf("unexpected failed status writes: %v", failedIDs)
	}
}

func TestEngine_Run_NoDueMessages(t *testing.T) {
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return nil, nil
		},
	}
	p := &fakeProvider{}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Total != 0 || report.Sent != 0 || report.Failed != 0 {
		t.Errorf("expected an empty report, got %+v", report)
	}
	if report.Errors == nil || len(report.Errors) != 0 {
		t.Errorf("expected empty (non-nil) error list, got %v", report.Errors)
	}
	if len(p.sent) != 0 {
		t.Errorf("expected no delivery attempts, got %d", len(p.sent))
	}
}

func TestEngine_Run_StoreReadFailure(t *testing.T) {
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return nil, errors.New("connection refused")
		},
	}
	p := &fakeProvider{}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error when the due query fails")
	}
	if report != nil {
		t.Errorf("expected no report on cycle failure, got %+v", report)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected wrapped cause in %q", err.Error())
	}
	if len(p.sent) != 0 {
		t.Errorf("expected no delivery attempts, got %d", len(p.sent))
	}
}

func TestEngine_Run_PassesBatchLimit(t *testing.T) {
	var gotLimit int
	var gotNow time.Time
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			gotLimit = arg.Limit
			gotNow = arg.Now
			return nil, nil
		},
	}

	fixed := time.Date(2025, 6, 1, 4, 30, 0, 0, time.UTC)
	engine := NewEngine(queries, &fakeProvider{}, 7, zerolog.Nop())
	engine.clock = func() time.Time { return fixed }

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gotLimit != 7 {
		t.Errorf("expected batch limit 7, got %d", gotLimit)
	}
	if !gotNow.Equal(fixed) {
		t.Errorf("expected due cutoff %s, got %s", fixed, gotNow)
	}
}

func TestEngine_Run_ConcurrentCycleWinsRace(t *testing.T) {
	msg := dueMessage("raced@example.com")
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return []storage.DueMessage{msg}, nil
		},
		markMessageSentFn: func(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error) {
			// Another cycle already transitioned the row.
			return false, nil
		},
	}
	p := &fakeProvider{}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Sent != 0 || report.Failed != 0 {
		t.Errorf("a lost race must not be counted, got %+v", report)
	}
	if report.Total != 1 {
		t.Errorf("expected total=1, got %d", report.Total)
	}
}

func TestEngine_Run_SentWriteFailureStillCounted(t *testing.T) {
	msg := dueMessage("persist@example.com")
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return []storage.DueMessage{msg}, nil
		},
		markMessageSentFn: func(ctx context.Context, arg storage.MarkMessageSentParams) (bool, error) {
			return false, errors.New("write timeout")
		},
	}
	p := &fakeProvider{}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err != nil {
		t.Fatalf("a status write failure must not abort the cycle: %v", err)
	}

	// The mail went out; the report reflects the wire even though the row is
	// still pending.
	if report.Sent != 1 || report.Failed != 0 {
		t.Errorf("expected sent=1 failed=0, got %+v", report)
	}
}

func TestEngine_Run_FailureWriteFailureDoesNotAbort(t *testing.T) {
	messages := []storage.DueMessage{
		dueMessage("broken@example.com"),
		dueMessage("fine@example.com"),
	}
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return messages, nil
		},
		markMessageFailedFn: func(ctx context.Context, arg storage.MarkMessageFailedParams) (bool, error) {
			return false, errors.New("write timeout")
		},
	}
	p := &fakeProvider{failTo: map[string]error{
		"broken@example.com": errors.New("rejected"),
	}}

	report, err := newTestEngine(queries, p).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Sent != 1 || report.Failed != 1 {
		t.Errorf("expected sent=1 failed=1, got %+v", report)
	}
	if len(p.sent) != 1 || p.sent[0].To != "fine@example.com" {
		t.Errorf("expected delivery to continue past the failure, got %v", p.sent)
	}
}

func TestEngine_Run_BuildsReplyToFromOwner(t *testing.T) {
	msg := dueMessage("recipient@example.com")
	msg.RecipientName = pgtype.Text{String: "Recipient", Valid: true}
	queries := &fakeQuerier{
		findDueMessagesFn: func(ctx context.Context, arg storage.FindDueMessagesParams) ([]storage.DueMessage, error) {
			return []storage.DueMessage{msg}, nil
		},
	}
	p := &fakeProvider{}

	if _, err := newTestEngine(queries, p).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(p.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(p.sent))
	}
	got := p.sent[0]
	if got.ReplyTo != "owner@example.com" || got.ReplyToName != "Owner" {
		t.Errorf("expected reply-to routed to the owner, got %q <%s>", got.ReplyToName, got.ReplyTo)
	}
	if got.To != "recipient@example.com" || got.ToName != "Recipient" {
		t.Errorf("unexpected recipient: %q <%s>", got.ToName, got.To)
	}
	if got.ID != msg.ID.String() {
		t.Errorf("expected message ID %s, got %s", msg.ID, got.ID)
	}
}
