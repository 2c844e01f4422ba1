package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProxyTargetValidation(t *testing.T) {
	h := NewProxyHandler(testLogger())

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name: "api.github.com allowed",
			path: "/github/https://api.github.com/repos/o/r/pulls",
		},
		{
			name: "raw.githubusercontent.com allowed",
			path: "/github/https://raw.githubusercontent.com/o/r/main/song.ttml",
		},
		{
			name: "single slash after scheme normalized",
			path: "/github/https:/api.github.com/repos/o/r",
		},
		{
			name:    "other hosts rejected",
			path:    "/github/https://evil.example/steal",
			wantErr: true,
		},
		{
			name:    "plain http rejected",
			path:    "/github/http://api.github.com/repos",
			wantErr: true,
		},
		{
			name:    "missing target rejected",
			path:    "/github/",
			wantErr: true,
		},
		{
			name: "url parameter carries absolute target",
			path: "/github/?url=https://github.com/o/r/pull/42",
		},
		{
			name: "path parameter resolves against api.github.com",
			path: "/github/?path=/repos/o/r/pulls/42",
		},
		{
			name:    "url parameter on other host rejected",
			path:    "/github/?url=https://evil.example/steal",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			target, err := h.targetURL(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, target)
		})
	}
}

func TestProxyTargetQueryPreserved(t *testing.T) {
	h := NewProxyHandler(testLogger())

	r := httptest.NewRequest(http.MethodGet,
		"/github/https://api.github.com/repos/o/r/pulls?state=open&per_page=100", nil)
	target, err := h.targetURL(r)
	require.NoError(t, err)
	assert.Equal(t, "open", target.Query().Get("state"))
	assert.Equal(t, "100", target.Query().Get("per_page"))
}

func TestProxyTargetReservedParamsStripped(t *testing.T) {
	h := NewProxyHandler(testLogger())

	r := httptest.NewRequest(http.MethodGet,
		"/github/?path=/repos/o/r/issues&state=open", nil)
	target, err := h.targetURL(r)
	require.NoError(t, err)
	assert.Equal(t, "api.github.com", target.Hostname())
	assert.Equal(t, "/repos/o/r/issues", target.Path)
	assert.Equal(t, "open", target.Query().Get("state"))
	assert.Empty(t, target.Query().Get("path"))
	assert.Empty(t, target.Query().Get("url"))
}

func TestRelayRejectsDisallowedHost(t *testing.T) {
	h := NewProxyHandler(testLogger())

	r := httptest.NewRequest(http.MethodGet, "/github/https://evil.example/x", nil)
	w := httptest.NewRecorder()
	h.Relay(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
