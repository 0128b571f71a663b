package tunerhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Insight-Services-APAC/ingenious-aux/auth"
	"github.com/Insight-Services-APAC/ingenious-aux/backend"
	"github.com/Insight-Services-APAC/ingenious-aux/internal/logctx"
	"github.com/Insight-Services-APAC/ingenious-aux/promptstore"
	"github.com/Insight-Services-APAC/ingenious-aux/storage"
	"github.com/Insight-Services-APAC/ingenious-aux/transcode"
	"github.com/Insight-Services-APAC/ingenious-aux/workflows"
	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

var _ http.Handler = (*Handler)(nil)

var jsonMediaType = contenttype.NewMediaType("application/json")

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"

	schemaCacheKey = "schema"
)

// writeJSONError emits a minimal JSON error body.
// Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger     *slog.Logger
	transcoder *transcode.Transcoder
	prompts    promptstore.Store
	cache      storage.Storage
	auth       auth.Authenticator
	realm      string
	service    string
	version    string
	schemaTTL  time.Duration
}

// WithLogger sets the slog logger used by the handler. If not provided, logs
// are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithTranscoder replaces the default structural transcoder.
func WithTranscoder(t *transcode.Transcoder) Option {
	return func(c *newConfig) { c.transcoder = t }
}

// WithPromptStore serves prompt content from the given store instead of
// proxying prompt operations to the backend.
func WithPromptStore(s promptstore.Store) Option {
	return func(c *newConfig) { c.prompts = s }
}

// WithCache caches workflow schemas per revision, avoiding a backend round
// trip on every evaluation.
func WithCache(s storage.Storage) Option {
	return func(c *newConfig) { c.cache = s }
}

// WithAuthenticator requires a valid bearer token on every request.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(c *newConfig) { c.auth = a }
}

// WithRealm sets the HTTP authentication realm advertised in WWW-Authenticate
// challenges. If empty (default), the realm attribute is omitted.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithServiceInfo sets the service name and version reported by the health
// endpoint.
func WithServiceInfo(service, version string) Option {
	return func(c *newConfig) {
		c.service = service
		c.version = version
	}
}

// WithSchemaTTL bounds how long cached workflow schemas are reused.
func WithSchemaTTL(ttl time.Duration) Option {
	return func(c *newConfig) { c.schemaTTL = ttl }
}

// Handler serves the tuner's HTTP API.
type Handler struct {
	mux        *http.ServeMux
	log        *slog.Logger
	backend    *backend.Client
	transcoder *transcode.Transcoder
	prompts    promptstore.Store
	cache      storage.Storage
	auth       auth.Authenticator
	realm      string
	service    string
	version    string
	schemaTTL  time.Duration
}

// New constructs a Handler over the given backend client.
func New(bc *backend.Client, opts ...Option) (*Handler, error) {
	if bc == nil {
		return nil, fmt.Errorf("backend client is required")
	}

	cfg := &newConfig{
		logger:    slog.New(slog.DiscardHandler),
		service:   "prompt-tuner",
		version:   "dev",
		schemaTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transcoder == nil {
		cfg.transcoder = transcode.New(transcode.WithLogHandler(cfg.logger.Handler()))
	}

	h := &Handler{
		log:        slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		backend:    bc,
		transcoder: cfg.transcoder,
		prompts:    cfg.prompts,
		cache:      cfg.cache,
		auth:       cfg.auth,
		realm:      cfg.realm,
		service:    cfg.service,
		version:    cfg.version,
		schemaTTL:  cfg.schemaTTL,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("PUT /api/messages/{messageID}/feedback", h.handleFeedback)
	mux.HandleFunc("POST /api/evaluate", h.handleEvaluate)
	mux.HandleFunc("GET /api/prompts/{revisionID}", h.handleListPrompts)
	mux.HandleFunc("POST /api/prompts/{revisionID}/defaults", h.handleCreateDefaults)
	mux.HandleFunc("GET /api/prompts/{revisionID}/{filename}", h.handleViewPrompt)
	mux.HandleFunc("POST /api/prompts/{revisionID}/{filename}", h.handleUpdatePrompt)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/diagnostic", h.handleDiagnostic)
	h.mux = mux
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// buildBearerChallenge builds a Bearer challenge header value:
//
//	Bearer realm="<realm>", error="...", error_description="..."
//
// Realm is omitted if empty.
func buildBearerChallenge(realm string, params map[string]string) string {
	pieces := make([]string, 0, 1+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if v, ok := params["error"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
	}
	if v, ok := params["error_description"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// checkAuthentication validates the request's bearer token. A nil
// authenticator leaves the instance open. On failure the response has
// already been written and ok is false.
func (h *Handler) checkAuthentication(ctx context.Context, r *http.Request, w http.ResponseWriter) (auth.UserInfo, bool) {
	if h.auth == nil {
		return nil, true
	}

	authHeader := r.Header.Get(authorizationHeader)
	if authHeader == "" {
		h.log.InfoContext(ctx, "auth.check.missing")
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, nil))
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		h.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "malformed bearer authorization header"))
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "invalid_request", "error_description": "malformed bearer authorization header"}))
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	tok := strings.TrimSpace(authHeader[len(bearerPrefix):])

	userInfo, err := h.auth.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "invalid_token", "error_description": err.Error()}))
			w.WriteHeader(http.StatusUnauthorized)
			return nil, false
		}
		if errors.Is(err, auth.ErrInsufficientScope) {
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "insufficient_scope", "error_description": err.Error()}))
			w.WriteHeader(http.StatusForbidden)
			return nil, false
		}
		h.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}
	return userInfo, true
}

// requireJSONBody rejects requests whose Content-Type is not JSON. The
// response has already been written when ok is false.
func (h *Handler) requireJSONBody(ctx context.Context, r *http.Request, w http.ResponseWriter) bool {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return false
	}
	return true
}

// writeBackendError maps a backend call failure onto the response:
// upstream status errors pass through with their original code and body,
// anything else reports the backend as unavailable.
func (h *Handler) writeBackendError(ctx context.Context, w http.ResponseWriter, err error) {
	var se *backend.StatusError
	if errors.As(err, &se) {
		h.log.WarnContext(ctx, "backend.status", slog.Int("status", se.StatusCode))
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.WriteHeader(se.StatusCode)
		if len(se.Body) > 0 {
			_, _ = w.Write(se.Body)
		}
		return
	}
	h.log.ErrorContext(ctx, "backend.call.fail", slog.String("err", err.Error()))
	writeJSONError(w, http.StatusBadGateway, "evaluation backend unavailable")
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}
	if !h.requireJSONBody(ctx, r, w) {
		return
	}

	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if req.UserPrompt == "" {
		writeJSONError(w, http.StatusBadRequest, "user_prompt is required")
		return
	}

	resp, err := h.backend.Chat(ctx, req)
	if err != nil {
		h.writeBackendError(ctx, w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.log.ErrorContext(ctx, "chat.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "chat.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}
	if !h.requireJSONBody(ctx, r, w) {
		return
	}

	messageID := r.PathValue("messageID")
	var body struct {
		Feedback *bool `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Feedback == nil {
		writeJSONError(w, http.StatusBadRequest, "feedback boolean is required")
		return
	}

	raw, err := h.backend.Feedback(ctx, messageID, *body.Feedback)
	if err != nil {
		h.writeBackendError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
	h.log.InfoContext(ctx, "feedback.ok", slog.String("message_id", messageID))
}

// EvaluateRequest is a structured evaluation submission: a flat form
// snapshot plus the workflow revision it targets.
type EvaluateRequest struct {
	Workflow   string         `json:"workflow"`
	RevisionID string         `json:"revision_id"`
	Identifier string         `json:"identifier,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	ThreadID   string         `json:"thread_id,omitempty"`
	Fields     map[string]any `json:"fields"`
}

// EvaluateResponse is the formatted outcome of an evaluation run.
type EvaluateResponse struct {
	EvaluationID string                    `json:"evaluation_id"`
	MessageID    string                    `json:"message_id"`
	ThreadID     string                    `json:"thread_id"`
	Summary      string                    `json:"summary,omitempty"`
	Evaluations  []backend.AgentEvaluation `json:"evaluations"`
	TokenCount   int                       `json:"token_count"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}
	if !h.requireJSONBody(ctx, r, w) {
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if req.RevisionID == "" {
		writeJSONError(w, http.StatusBadRequest, "revision_id is required")
		return
	}
	if len(req.Fields) == 0 {
		writeJSONError(w, http.StatusBadRequest, "fields must not be empty")
		return
	}
	if req.Workflow == "" {
		req.Workflow = workflows.SubmissionOverCriteria
	}

	ctx = logctx.WithEvaluationData(ctx, &logctx.EvaluationData{
		Workflow:   req.Workflow,
		RevisionID: req.RevisionID,
		Identifier: req.Identifier,
	})

	doc := h.workflowSchema(ctx, req.Workflow, req.RevisionID)

	env, err := h.transcoder.Assemble(transcode.AssembleRequest{
		Snapshot:   req.Fields,
		Schema:     doc,
		Workflow:   req.Workflow,
		RevisionID: req.RevisionID,
		Identifier: req.Identifier,
	})
	if err != nil {
		if errors.Is(err, transcode.ErrSchemaMissing) {
			writeJSONError(w, http.StatusUnprocessableEntity, "no schema available for workflow revision")
			h.log.WarnContext(ctx, "evaluate.schema.missing")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to assemble evaluation document")
		h.log.ErrorContext(ctx, "evaluate.assemble.fail", slog.String("err", err.Error()))
		return
	}

	encoded, err := env.EncodedUserPrompt()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode evaluation document")
		h.log.ErrorContext(ctx, "evaluate.encode.fail", slog.String("err", err.Error()))
		return
	}

	chatResp, err := h.backend.Chat(ctx, backend.ChatRequest{
		UserPrompt:       encoded,
		ConversationFlow: env.ConversationFlow,
		UserID:           req.UserID,
		ThreadID:         req.ThreadID,
	})
	if err != nil {
		h.writeBackendError(ctx, w, err)
		return
	}

	evaluations, summary, err := backend.ParseAgentEvaluations(chatResp.AgentResponse)
	if err != nil {
		// A transcript we cannot parse still carries a usable message ID;
		// surface the run without per-agent detail.
		h.log.WarnContext(ctx, "evaluate.transcript.parse.fail", slog.String("err", err.Error()))
	}

	resp := EvaluateResponse{
		EvaluationID: env.Identifier(),
		MessageID:    chatResp.MessageID,
		ThreadID:     chatResp.ThreadID,
		Summary:      summary,
		Evaluations:  evaluations,
		TokenCount:   chatResp.TokenCount,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.log.ErrorContext(ctx, "evaluate.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "evaluate.ok",
		slog.String("evaluation_id", resp.EvaluationID),
		slog.Duration("dur", time.Since(start)))
}

// workflowSchema resolves the schema for a workflow revision: cache, then
// backend, then the built-in fallback. It returns nil only when even the
// fallback cannot be parsed.
func (h *Handler) workflowSchema(ctx context.Context, workflow, revisionID string) *transcode.Document {
	if h.cache != nil {
		item, err := h.cache.Get(ctx, schemaCacheKey, storage.WithRevision(workflow, revisionID))
		if err != nil {
			h.log.WarnContext(ctx, "schema.cache.get.fail", slog.String("err", err.Error()))
		} else if item != nil {
			if doc, err := transcode.ParseDocument(item.Data); err == nil {
				return doc
			}
			h.log.WarnContext(ctx, "schema.cache.corrupt")
		}
	}

	raw, err := h.backend.WorkflowSchema(ctx, workflow, revisionID)
	if err != nil {
		h.log.InfoContext(ctx, "schema.backend.miss", slog.String("err", err.Error()))
	} else {
		doc, perr := transcode.ParseDocument(raw)
		if perr == nil {
			if h.cache != nil {
				if serr := h.cache.Set(ctx, schemaCacheKey, raw,
					storage.WithRevision(workflow, revisionID),
					storage.WithTTL(h.schemaTTL)); serr != nil {
					h.log.WarnContext(ctx, "schema.cache.set.fail", slog.String("err", serr.Error()))
				}
			}
			return doc
		}
		h.log.WarnContext(ctx, "schema.backend.unparseable", slog.String("err", perr.Error()))
	}

	fallback, err := workflows.FallbackSchema()
	if err != nil {
		h.log.ErrorContext(ctx, "schema.fallback.fail", slog.String("err", err.Error()))
		return nil
	}
	doc, err := transcode.ParseDocument(fallback)
	if err != nil {
		h.log.ErrorContext(ctx, "schema.fallback.unparseable", slog.String("err", err.Error()))
		return nil
	}
	h.log.InfoContext(ctx, "schema.fallback.used")
	return doc
}

// PromptInfo describes one prompt file of a revision, enriched with
// catalogue metadata when the filename is a known agent prompt.
type PromptInfo struct {
	Filename    string `json:"filename"`
	AgentName   string `json:"agent_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

func promptInfos(filenames []string) []PromptInfo {
	infos := make([]PromptInfo, 0, len(filenames))
	for _, name := range filenames {
		info := PromptInfo{Filename: name}
		if tmpl, ok := workflows.PromptByFilename(name); ok {
			info.AgentName = tmpl.AgentName
			info.DisplayName = tmpl.DisplayName
			info.Description = tmpl.Description
		}
		infos = append(infos, info)
	}
	return infos
}

func (h *Handler) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}

	revisionID := r.PathValue("revisionID")

	var (
		files []string
		err   error
	)
	if h.prompts != nil {
		files, err = h.prompts.List(ctx, revisionID)
		if errors.Is(err, promptstore.ErrNotFound) {
			files, err = nil, nil
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to list prompts")
			h.log.ErrorContext(ctx, "prompts.list.fail", slog.String("err", err.Error()))
			return
		}
	} else {
		files, err = h.backend.ListPromptFiles(ctx, revisionID)
		if err != nil {
			h.writeBackendError(ctx, w, err)
			return
		}
	}

	_ = writeJSON(w, http.StatusOK, map[string]any{
		"revision_id": revisionID,
		"prompts":     promptInfos(files),
	})
}

func (h *Handler) handleViewPrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}

	revisionID := r.PathValue("revisionID")
	filename := r.PathValue("filename")

	if h.prompts == nil {
		raw, err := h.backend.ViewPrompt(ctx, revisionID, filename)
		if err != nil {
			h.writeBackendError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}

	content, err := h.prompts.Get(ctx, revisionID, filename)
	if errors.Is(err, promptstore.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read prompt")
		h.log.ErrorContext(ctx, "prompts.view.fail", slog.String("err", err.Error()))
		return
	}

	body := map[string]any{
		"revision_id": revisionID,
		"filename":    filename,
		"content":     content,
	}
	if tmpl, ok := workflows.PromptByFilename(filename); ok {
		body["agent_name"] = tmpl.AgentName
		body["display_name"] = tmpl.DisplayName
	}
	_ = writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}
	if !h.requireJSONBody(ctx, r, w) {
		return
	}

	revisionID := r.PathValue("revisionID")
	filename := r.PathValue("filename")

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Content == "" {
		writeJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	if h.prompts == nil {
		var metadata map[string]any
		if tmpl, ok := workflows.PromptByFilename(filename); ok {
			metadata = map[string]any{"agent_name": tmpl.AgentName}
		}
		raw, err := h.backend.UpdatePrompt(ctx, revisionID, filename, body.Content, metadata)
		if err != nil {
			h.writeBackendError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}

	if err := h.prompts.Put(ctx, revisionID, filename, body.Content); err != nil {
		if errors.Is(err, promptstore.ErrNotFound) {
			writeJSONError(w, http.StatusBadRequest, "invalid revision or filename")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to store prompt")
		h.log.ErrorContext(ctx, "prompts.update.fail", slog.String("err", err.Error()))
		return
	}

	h.log.InfoContext(ctx, "prompts.update.ok",
		slog.String("revision_id", revisionID),
		slog.String("filename", filename))
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"revision_id": revisionID,
		"filename":    filename,
		"status":      "updated",
	})
}

func (h *Handler) handleCreateDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}

	revisionID := r.PathValue("revisionID")

	if h.prompts != nil {
		created, err := h.prompts.EnsureDefaults(ctx, revisionID)
		if err != nil {
			if errors.Is(err, promptstore.ErrNotFound) {
				writeJSONError(w, http.StatusBadRequest, "invalid revision")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "failed to seed default prompts")
			h.log.ErrorContext(ctx, "prompts.defaults.fail", slog.String("err", err.Error()))
			return
		}
		_ = writeJSON(w, http.StatusOK, map[string]any{
			"revision_id": revisionID,
			"created":     created,
		})
		return
	}

	existing, err := h.backend.ListPromptFiles(ctx, revisionID)
	if err != nil {
		var se *backend.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			h.writeBackendError(ctx, w, err)
			return
		}
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	created := []string{}
	for _, tmpl := range workflows.RequiredPrompts() {
		if have[tmpl.Filename] {
			continue
		}
		metadata := map[string]any{"agent_name": tmpl.AgentName}
		if _, err := h.backend.UpdatePrompt(ctx, revisionID, tmpl.Filename, tmpl.DefaultContent, metadata); err != nil {
			h.writeBackendError(ctx, w, err)
			return
		}
		created = append(created, tmpl.Filename)
	}

	_ = writeJSON(w, http.StatusOK, map[string]any{
		"revision_id": revisionID,
		"created":     created,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   h.service,
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.checkAuthentication(ctx, r, w); !ok {
		return
	}

	body := map[string]any{
		"service": h.service,
		"version": h.version,
	}

	if raw, err := h.backend.Health(ctx); err != nil {
		body["backend"] = map[string]any{"reachable": false, "error": err.Error()}
	} else {
		body["backend"] = map[string]any{"reachable": true, "health": json.RawMessage(raw)}
	}

	if raw, err := h.backend.Diagnostic(ctx); err == nil {
		body["diagnostic"] = json.RawMessage(raw)
	}

	_ = writeJSON(w, http.StatusOK, body)
}
