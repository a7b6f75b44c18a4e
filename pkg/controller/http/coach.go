package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/usecase"
)

type coachTurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type coachTurnResponse struct {
	SessionID types.SessionID     `json:"session_id"`
	Reply     *usecase.CoachReply `json:"reply"`
	Facts     model.Facts         `json:"facts"`
	UpdatedAt string              `json:"updated_at"`
}

func (s *Server) coachTurn(w http.ResponseWriter, r *http.Request) {
	var req coachTurnRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.SessionID == "" {
		handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "session_id is required"))
		return
	}

	session, reply, err := s.uc.Coach.HandleTurn(r.Context(), types.SessionID(req.SessionID), req.Message)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, coachTurnResponse{
		SessionID: session.ID,
		Reply:     reply,
		Facts:     session.Facts,
		UpdatedAt: session.UpdatedAt.Format(timeFormat),
	})
}
