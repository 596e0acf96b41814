package ai

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// loopbackHost is the only host providers may be reached on.
const loopbackHost = "127.0.0.1"

// ValidateLoopbackBaseURL checks that raw points at http://127.0.0.1 with an
// optional port and nothing else, and returns it in normalised form without
// a trailing slash.
func ValidateLoopbackBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", remoteNotAllowed(raw, "unparseable URL")
	}
	if u.Scheme != "http" {
		return "", remoteNotAllowed(raw, "scheme must be http")
	}
	if u.Opaque != "" || u.User != nil {
		return "", remoteNotAllowed(raw, "userinfo is not allowed")
	}
	if u.Hostname() != loopbackHost {
		return "", remoteNotAllowed(raw, "host must be "+loopbackHost)
	}
	if strings.Contains(u.Host, ":") {
		port := u.Port()
		if port == "" {
			return "", remoteNotAllowed(raw, "empty port")
		}
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return "", remoteNotAllowed(raw, "port must be 1..65535")
		}
	}
	if u.Path != "" && u.Path != "/" {
		return "", remoteNotAllowed(raw, "path is not allowed")
	}
	if u.RawQuery != "" || u.ForceQuery {
		return "", remoteNotAllowed(raw, "query is not allowed")
	}
	if u.Fragment != "" || strings.Contains(trimmed, "#") {
		return "", remoteNotAllowed(raw, "fragment is not allowed")
	}

	return "http://" + u.Host, nil
}

func remoteNotAllowed(raw, reason string) error {
	return domain.ErrRemoteNotAllowed.WithDetailsf("base_url=%q: %s", raw, reason)
}
