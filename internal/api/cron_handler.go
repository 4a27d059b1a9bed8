package api

import (
	"context"
	"net/http"

	"github.com/sungwon/heartpost/internal/dispatch"
	"github.com/sungwon/heartpost/internal/logger"
)

// CycleRunner runs one dispatch cycle. Satisfied by *dispatch.Engine.
type CycleRunner interface {
	Run(ctx context.Context) (*dispatch.Report, error)
}

// cronCompletedResponse is the report body returned after a cycle that
// selected at least one message.
type cronCompletedResponse struct {
	Message string           `json:"message"`
	Results *dispatch.Report `json:"results"`
}

// SendScheduledHandler handles GET /api/cron/send-scheduled: it runs one
// dispatch cycle and reports the aggregate outcome. Authorization is
// enforced by SecretAuth on the route.
func SendScheduledHandler(engine CycleRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		report, err := engine.Run(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("dispatch cycle aborted")
			respondErrorDetails(w, http.StatusInternalServerError,
				"Failed to process scheduled messages", err.Error())
			return
		}

		if report.Total == 0 {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"message":   "No messages to send",
				"processed": 0,
			})
			return
		}

		respondJSON(w, http.StatusOK, cronCompletedResponse{
			Message: "Cron job completed",
			Results: report,
		})
	}
}
