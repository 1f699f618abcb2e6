package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidURL(t *testing.T) {
	for _, ok := range []string{
		"http://feeds.arstechnica.com/arstechnica/index",
		"https://example.org/rss.xml",
		"file:///tmp/feed.xml",
	} {
		assert.NoError(t, IsValidURL(ok), ok)
	}
	for _, bad := range []string{
		"",
		"example.org/rss",
		"ftp://example.org/rss",
		"http://",
		"file://",
		"://broken",
	} {
		assert.ErrorIs(t, IsValidURL(bad), ErrInvalidURL, bad)
	}
}
