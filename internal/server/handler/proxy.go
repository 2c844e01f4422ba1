package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errInvalidProxyTarget = errors.New("proxy target must be an https URL on an allowed GitHub host")

// allowedProxyHosts are the only upstreams the relay will forward to.
var allowedProxyHosts = map[string]struct{}{
	"api.github.com":            {},
	"github.com":                {},
	"raw.githubusercontent.com": {},
}

// ProxyHandler relays GitHub API requests for frontends whose network cannot
// reach github.com directly. The upstream target is carried either in a
// reserved "url" or "path" query parameter, or in the request path after the
// /github/ prefix. The reserved parameters are stripped before forwarding;
// everything else in the query string is preserved.
type ProxyHandler struct {
	client *http.Client
	logger *slog.Logger
}

// NewProxyHandler creates a relay with a bounded upstream timeout.
func NewProxyHandler(logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Relay forwards the request to the encoded upstream URL and streams the
// response back verbatim.
func (h *ProxyHandler) Relay(w http.ResponseWriter, r *http.Request) {
	target, err := h.targetURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(w, "invalid upstream request", http.StatusBadRequest)
		return
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("github relay request failed", "url", target.String(), "error", err)
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for _, name := range []string{"Content-Type", "ETag", "Link", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// targetURL reconstructs and validates the upstream URL. A "url" parameter
// carries an absolute target, a "path" parameter a path on api.github.com;
// otherwise the target follows the /github/ path prefix. Accepts the form
// with a single slash after the scheme, which some URL normalizers produce.
func (h *ProxyHandler) targetURL(r *http.Request) (*url.URL, error) {
	query := r.URL.Query()
	paramURL := query.Get("url")
	paramPath := query.Get("path")
	query.Del("url")
	query.Del("path")

	var raw string
	switch {
	case paramURL != "":
		raw = paramURL
	case paramPath != "":
		raw = "https://api.github.com/" + strings.TrimPrefix(paramPath, "/")
	default:
		raw = strings.TrimPrefix(r.URL.EscapedPath(), "/github/")
		raw = strings.TrimPrefix(raw, "/")
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
	}
	switch {
	case strings.HasPrefix(raw, "https://"):
	case strings.HasPrefix(raw, "https:/"):
		raw = "https://" + strings.TrimPrefix(raw, "https:/")
	default:
		return nil, errInvalidProxyTarget
	}
	if encoded := query.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		raw += sep + encoded
	}
	target, err := url.Parse(raw)
	if err != nil {
		return nil, errInvalidProxyTarget
	}
	if _, ok := allowedProxyHosts[target.Hostname()]; !ok {
		return nil, errInvalidProxyTarget
	}
	return target, nil
}
