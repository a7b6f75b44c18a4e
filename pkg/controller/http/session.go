package http

import (
	"net/http"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/usecase"
)

type createSessionRequest struct {
	Jurisdiction string         `json:"jurisdiction"`
	Track        string         `json:"track"`
	Facts        map[string]any `json:"facts"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.uc.Session.Create(r.Context(), usecase.CreateSessionInput{
		Jurisdiction: req.Jurisdiction,
		Track:        req.Track,
		SeedFacts:    req.Facts,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.uc.Session.Get(r.Context(), sessionIDFromPath(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.uc.Session.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type patchSessionRequest struct {
	Jurisdiction *string        `json:"jurisdiction"`
	Track        *string        `json:"track"`
	Facts        map[string]any `json:"facts"`
}

func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	var req patchSessionRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.uc.Session.Patch(r.Context(), sessionIDFromPath(r), usecase.PatchSessionInput{
		Jurisdiction: req.Jurisdiction,
		Track:        req.Track,
		FactsPatch:   req.Facts,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Session.Delete(r.Context(), sessionIDFromPath(r)); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.uc.Session.Messages(r.Context(), sessionIDFromPath(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type mergeFactsRequest struct {
	Facts map[string]any `json:"facts"`
}

func (s *Server) mergeFacts(w http.ResponseWriter, r *http.Request) {
	var req mergeFactsRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	facts, err := s.uc.Session.MergeFacts(r.Context(), sessionIDFromPath(r), req.Facts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"facts": facts})
}
