package review

import (
	"fmt"
	"net/url"
	"strings"
)

// SafeRemoteURL validates a remote lyric file address before the application
// fetches it: http(s) only, no embedded credentials, no whitespace, and a
// .ttml path when requireTTML is set.
func SafeRemoteURL(input string, requireTTML bool) (*url.URL, error) {
	if input == "" || strings.ContainsAny(input, " \t\r\n") {
		return nil, fmt.Errorf("invalid remote file URL")
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid remote file URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("remote file URL must not carry credentials")
	}
	if requireTTML && !strings.HasSuffix(strings.ToLower(parsed.Path), ".ttml") {
		return nil, fmt.Errorf("remote file must be a .ttml document")
	}
	return parsed, nil
}
