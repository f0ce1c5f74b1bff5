package httputil_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medflow/report-explainer/pkg/errors"
	"github.com/medflow/report-explainer/pkg/httputil"
	"github.com/medflow/report-explainer/pkg/i18n"
	"github.com/medflow/report-explainer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorBody {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, errors.GenerationFailed(stderrors.New("secret provider detail")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeError(t, rec)
	assert.Equal(t, "GENERATION_FAILED", body.Code)
	assert.NotContains(t, body.Error, "secret provider detail")
}

func TestError_UnknownErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, stderrors.New("raw"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, body.Error, "raw")
}

func TestErrorLocalized_German(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.LocaleGerman))
	rec := httptest.NewRecorder()

	httputil.ErrorLocalized(rec, req, errors.Validation(map[string]string{"message": "this field is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, i18n.NewLocalizer(i18n.LocaleGerman).T("errors.validation_failed"), body.Error)
	assert.Equal(t, "this field is required", body.Details["message"])
}

func TestRequestID(t *testing.T) {
	var seen string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r.Context())
	}))

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_RecordsStages(t *testing.T) {
	var buf bytes.Buffer
	h := httputil.RequestID(httputil.Logger(logger.NewWithWriter("report-service", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.MarkStage(r.Context(), "extraction")
			httputil.MarkStage(r.Context(), "explanation")
			httputil.JSON(w, http.StatusOK, map[string]string{"response": "ok"})
		})))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("X-Request-ID", "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, []any{"extraction", "explanation"}, entry["stages"])
	assert.Equal(t, false, entry["client_gone"])
	assert.NotContains(t, entry, "abandoned_in")
}

func TestLogger_ClientGoneNamesAbandonedStage(t *testing.T) {
	var buf bytes.Buffer
	h := httputil.RequestID(httputil.Logger(logger.NewWithWriter("report-service", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.MarkStage(r.Context(), "extraction")
			httputil.MarkStage(r.Context(), "concise_summary")
			<-r.Context().Done()
		})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil).WithContext(ctx)
	req.Header.Set("X-Request-ID", "req-8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogEntry(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "req-8", entry["request_id"])
	assert.Equal(t, true, entry["client_gone"])
	assert.Equal(t, "concise_summary", entry["abandoned_in"])
	assert.Equal(t, float64(0), entry["status"])
}

func TestLogger_CancelledAfterResponseIsNotClientGone(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	h := httputil.Logger(logger.NewWithWriter("report-service", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
			cancel()
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	entry := decodeLogEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, false, entry["client_gone"])
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
}

func TestMarkStage_WithoutProgressIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { httputil.MarkStage(context.Background(), "extraction") })

	ctx, progress := httputil.WithProgress(context.Background())
	assert.Empty(t, progress.Last())
	httputil.MarkStage(ctx, "image")
	assert.Equal(t, "image", progress.Last())
	assert.Equal(t, []string{"image"}, progress.Stages())
}

func TestRecoverer(t *testing.T) {
	h := httputil.Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestValidate(t *testing.T) {
	type query struct {
		Topic string `json:"topic" validate:"required,max=10"`
	}

	assert.NoError(t, httputil.Validate(query{Topic: "asthma"}))

	err := httputil.Validate(query{})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["topic"])

	err = httputil.Validate(query{Topic: "a very long topic"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must be at most 10 characters", appErr.Details["topic"])
}
