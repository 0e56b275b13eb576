package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const defaultScheme = "https://"

// NormalizeURL trims raw, prefixes bare hosts with https:// and checks that
// the result is an absolute http(s) URL without userinfo, no longer than
// entity.MaxURLLength.
func NormalizeURL(raw string) (string, error) {
	const op = "usecase.NormalizeURL"

	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%s: %w", op, entity.ErrMissingURL)
	}

	if !strings.Contains(s, "://") {
		s = defaultScheme + s
	}

	if len(s) > entity.MaxURLLength {
		return "", fmt.Errorf("%s: %w", op, entity.ErrURLTooLong)
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, entity.ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s: %w: unsupported scheme %q", op, entity.ErrInvalidURL, u.Scheme)
	}

	// Also catches opaque schemes like mailto:a@b.com once prefixed with https://.
	if u.User != nil {
		return "", fmt.Errorf("%s: %w: userinfo is not allowed", op, entity.ErrInvalidURL)
	}

	host := u.Hostname()
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", fmt.Errorf("%s: %w: missing host", op, entity.ErrInvalidURL)
	}

	return s, nil
}
