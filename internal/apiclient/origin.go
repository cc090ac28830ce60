package apiclient

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin returns the scheme://host[:port] part of baseURL. Stored sessions
// are keyed by origin, mirroring browser storage scoping.
func Origin(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("server URL %q must be absolute (scheme://host)", baseURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
