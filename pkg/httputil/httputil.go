package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/medflow/report-explainer/pkg/errors"
	"github.com/medflow/report-explainer/pkg/i18n"
)

// ErrorBody is the JSON body written for every failed request
type ErrorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON sends data as the JSON response body
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// Text sends a plain text response
func Text(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write([]byte(body))
}

// Error sends an error response (uses default locale)
func Error(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		JSON(w, appErr.StatusCode, ErrorBody{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	JSON(w, http.StatusInternalServerError, ErrorBody{
		Error: i18n.T("errors.internal"),
		Code:  "INTERNAL_ERROR",
	})
}

// ErrorLocalized sends a localized error response using request context
func ErrorLocalized(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		JSON(w, appErr.StatusCode, ErrorBody{
			Error:   appErr.Localize(r.Context()),
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	JSON(w, http.StatusInternalServerError, ErrorBody{
		Error: i18n.TFromContext(r.Context(), "errors.internal"),
		Code:  "INTERNAL_ERROR",
	})
}
