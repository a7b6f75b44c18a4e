package http

import (
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/usecase"
)

const timeFormat = time.RFC3339

type generateOutputsRequest struct {
	SessionID  string `json:"session_id"`
	Regenerate bool   `json:"regenerate"`
}

func (s *Server) generateOutputs(w http.ResponseWriter, r *http.Request) {
	var req generateOutputsRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.SessionID == "" {
		handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "session_id is required"))
		return
	}

	packet, err := s.uc.Output.Generate(r.Context(), types.SessionID(req.SessionID), req.Regenerate)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, packet)
}
