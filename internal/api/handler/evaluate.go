package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/faultline/internal/alerting"
	"github.com/kiranshivaraju/faultline/internal/api/response"
)

// Runner executes one alert evaluation pass.
type Runner interface {
	Run(ctx context.Context) (alerting.RunStats, error)
}

// NewEvaluateHandler returns an http.HandlerFunc for POST /api/v1/evaluate.
// It runs the pass synchronously so operators see the outcome immediately.
func NewEvaluateHandler(pipeline Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := pipeline.Run(r.Context())
		if errors.Is(err, alerting.ErrRunInProgress) {
			response.Error(w, http.StatusConflict, "EVALUATION_IN_PROGRESS",
				"An evaluation run is already in progress", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "EVALUATION_FAILED",
				"Evaluation run failed", nil)
			return
		}

		response.JSON(w, stats)
	}
}
