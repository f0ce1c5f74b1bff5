package httputil

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/report-explainer/pkg/logger"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	progressKey  contextKey = "progress"
)

// Progress records the pipeline stages a request entered. Stages may be
// marked from concurrent goroutines.
type Progress struct {
	mu     sync.Mutex
	stages []string
}

// WithProgress attaches a fresh Progress to ctx.
func WithProgress(ctx context.Context) (context.Context, *Progress) {
	p := &Progress{}
	return context.WithValue(ctx, progressKey, p), p
}

// MarkStage records that the request entered stage. It is a no-op when
// ctx carries no Progress.
func MarkStage(ctx context.Context, stage string) {
	p, ok := ctx.Value(progressKey).(*Progress)
	if !ok {
		return
	}
	p.mu.Lock()
	p.stages = append(p.stages, stage)
	p.mu.Unlock()
}

// Stages returns the stages entered so far, in order.
func (p *Progress) Stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.stages)
}

// Last returns the most recently entered stage, or "" if none.
func (p *Progress) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.stages) == 0 {
		return ""
	}
	return p.stages[len(p.stages)-1]
}

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests along with the pipeline stages they
// reached. A request whose client disconnected before a response was
// written is logged as a warning naming the stage it was abandoned in.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, progress := WithProgress(r.Context())

			wrapped := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			clientGone := ctx.Err() != nil && !wrapped.wrote
			event := log.Info()
			msg := "HTTP request"
			if clientGone {
				event = log.Warn().Str("abandoned_in", progress.Last())
				msg = "client disconnected before response"
			}

			event.
				Str("request_id", GetRequestID(ctx)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Strs("stages", progress.Stages()).
				Dur("duration", time.Since(start)).
				Bool("client_gone", clientGone).
				Str("remote_addr", r.RemoteAddr).
				Msg(msg)
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					event := log.Error().
						Interface("panic", err).
						Str("request_id", GetRequestID(r.Context()))
					if p, ok := r.Context().Value(progressKey).(*Progress); ok {
						event = event.Str("stage", p.Last())
					}
					event.
						Str("path", r.URL.Path).
						Msg("panic recovered")

					ErrorLocalized(w, r, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wrote {
		rw.statusCode = http.StatusOK
		rw.wrote = true
	}
	return rw.ResponseWriter.Write(b)
}

// Status is the written status code, or 0 when nothing was written.
func (rw *responseWriter) Status() int {
	return rw.statusCode
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
