package helper

import (
	"errors"
	"fmt"
	"net/url"
)

var ErrInvalidURL = errors.New("invalid feed URL")

// IsValidURL accepts absolute http, https and file URLs. It does not contact the host.
func IsValidURL(feedURL string) error {
	u, err := url.Parse(feedURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, feedURL)
		}
	case "file":
		if u.Path == "" {
			return fmt.Errorf("%w: missing path in %q", ErrInvalidURL, feedURL)
		}
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return nil
}
