package logctx

import (
	"context"
	"log/slog"
)

// Handler enriches records with request and evaluation data carried on the
// context. Wrap the application's base handler with it once, at startup.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if ed, ok := ctx.Value(evaluationDataKey{}).(*EvaluationData); ok {
		r.AddAttrs(slog.Group("eval",
			slog.String("workflow", ed.Workflow),
			slog.String("revision_id", ed.RevisionID),
			slog.String("identifier", ed.Identifier),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type evaluationDataKey struct{}

// EvaluationData identifies the workflow revision an in-flight evaluation
// targets, including its correlation identifier.
type EvaluationData struct {
	Workflow   string
	RevisionID string
	Identifier string
}

func WithEvaluationData(ctx context.Context, data *EvaluationData) context.Context {
	return context.WithValue(ctx, evaluationDataKey{}, data)
}
