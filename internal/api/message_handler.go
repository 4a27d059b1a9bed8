package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sungwon/heartpost/internal/logger"
	"github.com/sungwon/heartpost/internal/schedule"
	"github.com/sungwon/heartpost/internal/storage"
)

// createMessageRequest is the authoring payload. The scheduled time arrives
// as the user's local (date, time, timezone) triple and is normalized to UTC
// before storage.
type createMessageRequest struct {
	UserID         string `json:"user_id"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	Occasion       string `json:"occasion,omitempty"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Timezone       string `json:"timezone"`
}

// messageResponse is the JSON shape for a stored message.
type messageResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	RecipientEmail string  `json:"recipient_email"`
	RecipientName  *string `json:"recipient_name,omitempty"`
	Occasion       string  `json:"occasion"`
	Subject        string  `json:"subject"`
	Body           string  `json:"body"`
	ScheduledAt    string  `json:"scheduled_at"`
	Status         string  `json:"status"`
	SentAt         *string `json:"sent_at,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// CreateMessageHandler handles POST /api/v1/messages: validate the payload,
// normalize the scheduled time, and store a pending message.
func CreateMessageHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var validationErrors []string

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			validationErrors = append(validationErrors, "user_id must be a valid UUID")
		}
		if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
			validationErrors = append(validationErrors, "recipient_email must be a valid email address")
		}
		if req.Subject == "" {
			validationErrors = append(validationErrors, "subject is required")
		}
		if req.Body == "" {
			validationErrors = append(validationErrors, "body is required")
		}

		occasion := req.Occasion
		if occasion == "" {
			occasion = "custom"
		}

		scheduledAt, err := schedule.Normalize(req.Date, req.Time, req.Timezone)
		switch {
		case errors.Is(err, schedule.ErrInvalidTimezone):
			validationErrors = append(validationErrors, "timezone is not a recognized IANA zone")
		case errors.Is(err, schedule.ErrInvalidDateTime):
			validationErrors = append(validationErrors, "date/time is not a valid calendar value")
		case err == nil && !scheduledAt.After(time.Now().UTC()):
			validationErrors = append(validationErrors, "scheduled time must be in the future")
		}

		if len(validationErrors) > 0 {
			respondValidationErrors(w, validationErrors)
			return
		}

		msg, err := queries.CreateMessage(r.Context(), storage.CreateMessageParams{
			UserID:         userID,
			RecipientEmail: req.RecipientEmail,
			RecipientName:  pgtype.Text{String: req.RecipientName, Valid: req.RecipientName != ""},
			Occasion:       occasion,
			Subject:        req.Subject,
			Body:           req.Body,
			ScheduledAt:    scheduledAt,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create message")
			respondError(w, http.StatusInternalServerError, "failed to create message")
			return
		}

		respondJSON(w, http.StatusCreated, toMessageResponse(msg))
	}
}

// GetMessageHandler handles GET /api/v1/messages/{id}.
func GetMessageHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid message ID")
			return
		}

		msg, err := queries.GetMessageByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondError(w, http.StatusNotFound, "message not found")
				return
			}
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("failed to get message")
			respondError(w, http.StatusInternalServerError, "failed to get message")
			return
		}

		respondJSON(w, http.StatusOK, toMessageResponse(msg))
	}
}

// ListMessagesHandler handles GET /api/v1/messages?user_id=<uuid>.
func ListMessagesHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "user_id query parameter must be a valid UUID")
			return
		}

		messages, err := queries.ListMessagesByUser(r.Context(), userID)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("failed to list messages")
			respondError(w, http.StatusInternalServerError, "failed to list messages")
			return
		}

		out := make([]messageResponse, 0, len(messages))
		for _, m := range messages {
			out = append(out, toMessageResponse(m))
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
	}
}

func toMessageResponse(m storage.Message) messageResponse {
	resp := messageResponse{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		RecipientEmail: m.RecipientEmail,
		Occasion:       m.Occasion,
		Subject:        m.Subject,
		Body:           m.Body,
		ScheduledAt:    m.ScheduledAt.UTC().Format(time.RFC3339),
		Status:         string(m.Status),
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.RecipientName.Valid {
		resp.RecipientName = &m.RecipientName.String
	}
	if m.SentAt.Valid {
		s := m.SentAt.Time.UTC().Format(time.RFC3339)
		resp.SentAt = &s
	}
	if m.ErrorMessage.Valid {
		resp.ErrorMessage = &m.ErrorMessage.String
	}
	return resp
}
