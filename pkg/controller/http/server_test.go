package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	httpctrl "github.com/intake-lab/prosecoach/pkg/controller/http"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/repository/memory"
	"github.com/intake-lab/prosecoach/pkg/usecase"
)

func newTestServer(t *testing.T) *httpctrl.Server {
	t.Helper()
	return httpctrl.New(usecase.New(memory.New()))
}

func doJSON(t *testing.T, server *httpctrl.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body)).Required()
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, server *httpctrl.Server) *model.Session {
	t.Helper()

	rec := doJSON(t, server, http.MethodPost, "/api/session", map[string]any{
		"jurisdiction": "New York",
		"track":        "protection_order",
	})
	gt.Number(t, rec.Code).Equal(http.StatusCreated).Required()

	var s model.Session
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s)).Required()
	return &s
}

func TestServer_Sessions(t *testing.T) {
	t.Run("create and fetch a session", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodGet, "/api/session/"+s.ID.String(), nil)
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var got model.Session
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
		gt.Value(t, got.ID).Equal(s.ID)
		gt.Value(t, got.Jurisdiction).Equal("New York")
	})

	t.Run("unknown session returns 404", func(t *testing.T) {
		server := newTestServer(t)
		rec := doJSON(t, server, http.MethodGet, "/api/session/7b944f10-9f68-4a86-9d50-dc2cbd619520", nil)
		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("invalid JSON body returns 400", func(t *testing.T) {
		server := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/session", bytes.NewBufferString("{broken"))
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("patch updates metadata and facts", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodPatch, "/api/session/"+s.ID.String(), map[string]any{
			"jurisdiction": "Queens County, NY",
			"facts":        map[string]any{"goal_relief": "stay-away order"},
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var got model.Session
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
		gt.Value(t, got.Jurisdiction).Equal("Queens County, NY")
		gt.Value(t, got.Facts.GoalRelief).Equal("stay-away order")
	})

	t.Run("merge facts preserves unknown keys", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodPost, "/api/session/"+s.ID.String()+"/facts", map[string]any{
			"facts": map[string]any{"housing_status": "month to month"},
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var body struct {
			Facts map[string]any `json:"facts"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
		gt.Value(t, body.Facts["housing_status"]).Equal("month to month")
	})

	t.Run("list returns sessions newest first", func(t *testing.T) {
		server := newTestServer(t)
		createSession(t, server)
		createSession(t, server)

		rec := doJSON(t, server, http.MethodGet, "/api/session", nil)
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var body struct {
			Sessions []*model.Session `json:"sessions"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
		gt.Array(t, body.Sessions).Length(2)
	})

	t.Run("delete then get returns 404", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodDelete, "/api/session/"+s.ID.String(), nil)
		gt.Number(t, rec.Code).Equal(http.StatusNoContent)

		rec = doJSON(t, server, http.MethodGet, "/api/session/"+s.ID.String(), nil)
		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestServer_Coach(t *testing.T) {
	t.Run("turn returns reply with questions and messages persist", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodPost, "/api/coach", map[string]any{
			"session_id": s.ID.String(),
			"message":    "My ex keeps showing up at my apartment",
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK).Required()

		var body struct {
			Reply struct {
				AssistantMessage string   `json:"assistant_message"`
				NextQuestions    []string `json:"next_questions"`
				ProgressPercent  int      `json:"progress_percent"`
			} `json:"reply"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
		gt.Value(t, body.Reply.AssistantMessage).NotEqual("")
		gt.Array(t, body.Reply.NextQuestions).Length(4)

		msgRec := doJSON(t, server, http.MethodGet, "/api/session/"+s.ID.String()+"/messages", nil)
		gt.Number(t, msgRec.Code).Equal(http.StatusOK)

		var msgBody struct {
			Messages []*model.Message `json:"messages"`
		}
		gt.NoError(t, json.Unmarshal(msgRec.Body.Bytes(), &msgBody)).Required()
		gt.Array(t, msgBody.Messages).Length(2)
	})

	t.Run("missing session_id returns 400", func(t *testing.T) {
		server := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/coach", map[string]any{"message": "hi"})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("empty message returns 400", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)
		rec := doJSON(t, server, http.MethodPost, "/api/coach", map[string]any{
			"session_id": s.ID.String(),
			"message":    "  ",
		})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestServer_Outputs(t *testing.T) {
	t.Run("generates a packet for an existing session", func(t *testing.T) {
		server := newTestServer(t)
		s := createSession(t, server)

		rec := doJSON(t, server, http.MethodPost, "/api/outputs", map[string]any{
			"session_id": s.ID.String(),
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK).Required()

		var packet model.Packet
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &packet)).Required()
		gt.NoError(t, packet.Validate())
		gt.Value(t, packet.ReviewerPacket.Jurisdiction).Equal("New York")
	})

	t.Run("unknown session returns 404", func(t *testing.T) {
		server := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/outputs", map[string]any{
			"session_id": "7b944f10-9f68-4a86-9d50-dc2cbd619520",
		})
		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	gt.Number(t, rec.Code).Equal(http.StatusOK)
}
