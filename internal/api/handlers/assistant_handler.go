package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

// NormativeAssistant defines the assistant operations used by the handler.
type NormativeAssistant interface {
	Ask(ctx context.Context, question string) (*entities.NormativeAnswer, error)
}

// AssistantHandler handles free-text regulatory questions
type AssistantHandler struct {
	service NormativeAssistant
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(service NormativeAssistant) *AssistantHandler {
	return &AssistantHandler{service: service}
}

type assistantRequest struct {
	Question string `json:"question"`
}

// Query handles POST /api/assistant/query
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	var payload assistantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	answer, err := h.service.Ask(r.Context(), payload.Question)
	if err != nil {
		respondWithAppError(w, err, "failed to answer question")
		return
	}

	respondWithJSON(w, http.StatusOK, answer)
}
