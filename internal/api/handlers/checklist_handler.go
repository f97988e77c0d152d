package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
)

const maxChecklistBodyBytes = 1 << 20

// ChecklistEvaluator defines the checklist operations used by the handler.
type ChecklistEvaluator interface {
	Evaluate(ctx context.Context, raw []byte) (*entities.Evaluation, error)
}

// ChecklistHandler handles checklist submissions
type ChecklistHandler struct {
	service ChecklistEvaluator
}

// NewChecklistHandler creates a new checklist handler
func NewChecklistHandler(service ChecklistEvaluator) *ChecklistHandler {
	return &ChecklistHandler{service: service}
}

// EvaluateChecklist handles POST /api/checklists/evaluate
func (h *ChecklistHandler) EvaluateChecklist(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChecklistBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "checklist payload is too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	evaluation, err := h.service.Evaluate(r.Context(), body)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Info().Err(err).Msg("checklist rejected")
		respondWithAppError(w, err, "failed to evaluate checklist")
		return
	}

	respondWithJSON(w, http.StatusOK, evaluation)
}
