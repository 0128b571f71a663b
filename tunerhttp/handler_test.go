package tunerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Insight-Services-APAC/ingenious-aux/auth"
	"github.com/Insight-Services-APAC/ingenious-aux/backend"
	"github.com/Insight-Services-APAC/ingenious-aux/promptstore"
	memstorage "github.com/Insight-Services-APAC/ingenious-aux/storage/memory"
)

const submissionsSchema = `{
	"type": "object",
	"properties": {
		"revision_id": {"type": "string"},
		"identifier": {"type": "string"},
		"submissions": {
			"type": "array",
			"items": {"$ref": "#/definitions/Submission"}
		}
	},
	"definitions": {
		"Submission": {
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"author": {"type": "string"},
				"content": {"type": "string"}
			}
		}
	}
}`

// fakeBackend is a minimal evaluation API double. It records the last chat
// request and counts schema fetches.
type fakeBackend struct {
	srv           *httptest.Server
	schemaStatus  int
	schemaBody    string
	schemaFetches atomic.Int64
	lastChat      atomic.Pointer[backend.ChatRequest]
	chatResponse  backend.ChatResponse
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		schemaStatus: http.StatusOK,
		schemaBody:   submissionsSchema,
		chatResponse: backend.ChatResponse{
			MessageID:  "msg-1",
			ThreadID:   "thread-1",
			TokenCount: 42,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req backend.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if q := r.URL.Query().Get("conversation_flow"); q != "" {
			req.ConversationFlow = q
		}
		fb.lastChat.Store(&req)
		_ = json.NewEncoder(w).Encode(fb.chatResponse)
	})
	mux.HandleFunc("GET /api/v1/workflows/{workflow}/schema", func(w http.ResponseWriter, r *http.Request) {
		fb.schemaFetches.Add(1)
		if fb.schemaStatus != http.StatusOK {
			http.Error(w, "no schema", fb.schemaStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fb.schemaBody))
	})
	mux.HandleFunc("GET /api/v1/prompts/list/{revisionID}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"files": ["summary_prompt.jinja"]}`))
	})
	mux.HandleFunc("GET /api/v1/prompts/view/{revisionID}/{filename}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "prompt not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("GET /api/v1/diagnostic", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uptime": "1h"}`))
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) client(t *testing.T) *backend.Client {
	t.Helper()
	c, err := backend.NewClient(backend.Config{BaseURL: fb.srv.URL})
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	return c
}

func newTestHandler(t *testing.T, fb *fakeBackend, opts ...Option) *Handler {
	t.Helper()
	h, err := New(fb.client(t), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateEndToEnd(t *testing.T) {
	fb := newFakeBackend(t)
	agentResponse := `[
		{"__dict__": {"chat_name": "feasibility_agent", "completion_tokens": 10,
			"chat_response": {"chat_message": {"__dict__": {"content": "looks feasible"}}}}},
		{"__dict__": {"chat_name": "summary", "completion_tokens": 20,
			"chat_response": {"chat_message": {"__dict__": {"content": "ranked: sub_001"}}}}}
	]`
	fb.chatResponse.AgentResponse = agentResponse

	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodPost, "/api/evaluate", map[string]any{
		"workflow":    "submission-over-criteria",
		"revision_id": "rev-1",
		"identifier":  "test-2026-08-25T09-30-12Z",
		"fields": map[string]any{
			"submissions_0_title":   "First",
			"submissions_0_author":  "Ada",
			"submissions_0_content": "body one",
			"submissions_1_title":   "Second",
			"submissions_1_author":  "Grace",
			"submissions_1_content": "body two",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp EvaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EvaluationID != "test-2026-08-25T09-30-12Z" {
		t.Fatalf("evaluation_id = %q", resp.EvaluationID)
	}
	if resp.Summary != "ranked: sub_001" || len(resp.Evaluations) != 2 {
		t.Fatalf("summary = %q, evaluations = %v", resp.Summary, resp.Evaluations)
	}
	if resp.TokenCount != 42 {
		t.Fatalf("token_count = %d", resp.TokenCount)
	}

	chat := fb.lastChat.Load()
	if chat == nil {
		t.Fatal("backend never received a chat request")
	}
	if chat.ConversationFlow != "submission-over-criteria" {
		t.Fatalf("conversation_flow = %q", chat.ConversationFlow)
	}

	var userPrompt map[string]any
	if err := json.Unmarshal([]byte(chat.UserPrompt), &userPrompt); err != nil {
		t.Fatalf("user_prompt is not a JSON string: %v", err)
	}
	if userPrompt["revision_id"] != "rev-1" {
		t.Fatalf("user_prompt revision_id = %v", userPrompt["revision_id"])
	}
	subs, _ := userPrompt["submissions"].([]any)
	if len(subs) != 2 {
		t.Fatalf("submissions = %v", userPrompt["submissions"])
	}
	first, _ := subs[0].(map[string]any)
	if first["title"] != "First" || first["author"] != "Ada" {
		t.Fatalf("submissions[0] = %v", first)
	}
}

func TestEvaluateFallsBackToBuiltinSchema(t *testing.T) {
	fb := newFakeBackend(t)
	fb.schemaStatus = http.StatusNotFound
	fb.chatResponse.AgentResponse = ""

	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodPost, "/api/evaluate", map[string]any{
		"revision_id": "rev-1",
		"fields": map[string]any{
			"submissions_0_title":   "Only",
			"submissions_0_content": "body",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	chat := fb.lastChat.Load()
	if chat == nil {
		t.Fatal("backend never received a chat request")
	}
	var userPrompt map[string]any
	if err := json.Unmarshal([]byte(chat.UserPrompt), &userPrompt); err != nil {
		t.Fatalf("user_prompt decode: %v", err)
	}
	subs, _ := userPrompt["submissions"].([]any)
	if len(subs) != 1 {
		t.Fatalf("submissions via fallback schema = %v", userPrompt["submissions"])
	}
}

func TestEvaluateValidation(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodPost, "/api/evaluate", map[string]any{
		"fields": map[string]any{"submissions_0_title": "x"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing revision_id status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/evaluate", map[string]any{
		"revision_id": "rev-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty fields status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("wrong content type status = %d", rec2.Code)
	}
}

func TestEvaluateUsesSchemaCache(t *testing.T) {
	fb := newFakeBackend(t)
	cache, err := memstorage.New(16)
	if err != nil {
		t.Fatalf("memory storage: %v", err)
	}
	defer cache.Close()

	h := newTestHandler(t, fb, WithCache(cache))

	body := map[string]any{
		"revision_id": "rev-1",
		"fields":      map[string]any{"submissions_0_title": "x"},
	}
	for i := 0; i < 3; i++ {
		if rec := doJSON(t, h, http.MethodPost, "/api/evaluate", body); rec.Code != http.StatusOK {
			t.Fatalf("evaluate %d status = %d", i, rec.Code)
		}
	}
	if n := fb.schemaFetches.Load(); n != 1 {
		t.Fatalf("schema fetched %d times, want 1", n)
	}
}

func TestChatProxy(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{
		"user_prompt":       "hello",
		"conversation_flow": "submission-over-criteria",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp backend.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.MessageID != "msg-1" {
		t.Fatalf("response = %s, %v", rec.Body.String(), err)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty user_prompt status = %d", rec.Code)
	}
}

func TestFeedbackRequiresBoolean(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodPut, "/api/messages/msg-1/feedback", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing feedback status = %d", rec.Code)
	}
}

func TestPromptsWithLocalStore(t *testing.T) {
	fb := newFakeBackend(t)
	store := promptstore.NewMemory()
	h := newTestHandler(t, fb, WithPromptStore(store))

	rec := doJSON(t, h, http.MethodPost, "/api/prompts/rev-1/defaults", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("defaults status = %d, body %s", rec.Code, rec.Body.String())
	}
	var seeded struct {
		Created []string `json:"created"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &seeded); err != nil || len(seeded.Created) != 6 {
		t.Fatalf("created = %v, %v", seeded.Created, err)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/prompts/rev-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Prompts []PromptInfo `json:"prompts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil || len(listed.Prompts) != 6 {
		t.Fatalf("prompts = %v, %v", listed.Prompts, err)
	}
	foundSummary := false
	for _, p := range listed.Prompts {
		if p.Filename == "summary_prompt.jinja" {
			foundSummary = true
			if p.AgentName != "summary" || p.DisplayName == "" {
				t.Fatalf("summary metadata not merged: %+v", p)
			}
		}
	}
	if !foundSummary {
		t.Fatal("summary prompt missing from listing")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/prompts/rev-1/summary_prompt.jinja", map[string]any{
		"content": "custom summary prompt",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/prompts/rev-1/summary_prompt.jinja", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view status = %d", rec.Code)
	}
	var viewed struct {
		Content   string `json:"content"`
		AgentName string `json:"agent_name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &viewed); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if viewed.Content != "custom summary prompt" || viewed.AgentName != "summary" {
		t.Fatalf("view = %+v", viewed)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/prompts/rev-1/missing.jinja", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing prompt status = %d", rec.Code)
	}
}

func TestPromptViewProxiesBackendStatus(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodGet, "/api/prompts/rev-1/missing.jinja", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want backend 404 passthrough", rec.Code)
	}
}

func TestHealthIsLocal(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb, WithServiceInfo("prompt-tuner", "1.2.3"))

	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "prompt-tuner" || body["version"] != "1.2.3" {
		t.Fatalf("health body = %v", body)
	}
}

func TestDiagnosticReportsBackend(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb)

	rec := doJSON(t, h, http.MethodGet, "/api/diagnostic", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Backend struct {
			Reachable bool `json:"reachable"`
		} `json:"backend"`
		Diagnostic map[string]any `json:"diagnostic"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Backend.Reachable || body.Diagnostic["uptime"] != "1h" {
		t.Fatalf("diagnostic body = %s", rec.Body.String())
	}
}

type stubAuthenticator struct {
	token string
}

type stubUser struct{ id string }

func (u stubUser) UserID() string       { return u.id }
func (u stubUser) Claims(ref any) error { return nil }

func (a stubAuthenticator) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	if tok != a.token {
		return nil, auth.ErrUnauthorized
	}
	return stubUser{id: "user-1"}, nil
}

func TestAuthenticatedInstance(t *testing.T) {
	fb := newFakeBackend(t)
	h := newTestHandler(t, fb, WithAuthenticator(stubAuthenticator{token: "sekrit"}), WithRealm("tuner"))

	req := httptest.NewRequest(http.MethodGet, "/api/prompts/rev-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") || !strings.Contains(got, `realm="tuner"`) {
		t.Fatalf("WWW-Authenticate = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/prompts/rev-1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/prompts/rev-1", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, body %s", rec.Code, rec.Body.String())
	}
}
