package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sungwon/heartpost/internal/compose"
	"github.com/sungwon/heartpost/internal/logger"
)

// Drafter generates a message draft. Satisfied by *compose.Composer.
type Drafter interface {
	Draft(ctx context.Context, req compose.DraftRequest) (*compose.Draft, error)
}

// ComposeHandler handles POST /api/v1/compose: draft subject and body text
// for the given occasion, tone, and context.
func ComposeHandler(drafter Drafter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compose.DraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if req.Context == "" {
			respondValidationErrors(w, []string{"context is required"})
			return
		}

		draft, err := drafter.Draft(r.Context(), req)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("failed to generate draft")
			respondError(w, http.StatusBadGateway, "failed to generate message, please try again")
			return
		}

		respondJSON(w, http.StatusOK, draft)
	}
}
