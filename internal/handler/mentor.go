package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/pulsepy/internal/mentor"
)

// Mentor produces a hint. *mentor.Client implements it.
type Mentor interface {
	Hint(ctx context.Context, req mentor.HintRequest) mentor.Hint
}

// MentorHandler handles AI mentor hint requests.
type MentorHandler struct {
	mentor Mentor
	logger *slog.Logger
}

// NewMentorHandler creates a new MentorHandler.
func NewMentorHandler(m Mentor, logger *slog.Logger) *MentorHandler {
	return &MentorHandler{mentor: m, logger: logger}
}

// HandleHint returns a hint for the learner's last run.
//
// HTTP: POST /api/mentorHint
// Always 200 with {hint, tone, model} unless the body is not JSON.
func (h *MentorHandler) HandleHint(w http.ResponseWriter, r *http.Request) {
	var req mentor.HintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.mentor.Hint(r.Context(), req))
}
