package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", LocaleEnglish},
		{"de", LocaleGerman},
		{"de-DE,de;q=0.9,en;q=0.8", LocaleGerman},
		{"en-US,en;q=0.9,de;q=0.8", LocaleEnglish},
		{"fr-CH, de;q=0.8, en;q=0.5", LocaleGerman},
		{"fr, it", LocaleEnglish},
		{"en;q=0.2, de;q=0.7", LocaleGerman},
		{"de;q=0, en", LocaleEnglish},
		{"ES-es, DE-at", LocaleGerman},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAcceptLanguage(tt.header))
		})
	}
}

func TestLocalizer_T(t *testing.T) {
	en := NewLocalizer(LocaleEnglish)
	de := NewLocalizer(LocaleGerman)

	assert.Equal(t, "Error processing file", en.T("errors.extraction_failed"))
	assert.NotEqual(t, en.T("errors.extraction_failed"), de.T("errors.extraction_failed"))
	assert.Equal(t, "errors.missing_key", en.T("errors.missing_key"))
	assert.Equal(t, "errors", en.T("errors"))
}

func TestNewLocalizer_UnsupportedFallsBack(t *testing.T) {
	l := NewLocalizer("fr")
	assert.Equal(t, T("welcome"), l.T("welcome"))
}

func TestMiddleware_SetsLocale(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetLocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "de-AT")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, LocaleGerman, got)
	assert.Equal(t, DefaultLocale, GetLocaleFromContext(context.Background()))
}
