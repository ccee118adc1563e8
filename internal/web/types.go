package web

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ContentCap bounds every extracted body, in runes.
const ContentCap = 15000

// ErrNavigationTimeout is returned together with a usable Tab when the page
// did not signal load-complete in time.
var ErrNavigationTimeout = errors.New("navigation did not complete in time")

// Content is the normalized result of a deep-fetch.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Snapshot is the state of a browsing context at one point in time.
type Snapshot struct {
	Location string
	Doc      *goquery.Document
}

// Tab is a disposable browsing context.
type Tab interface {
	// Snapshot returns the current location and DOM.
	Snapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Browser creates browsing contexts. Open waits for the page to load until ctx
// is done; if a context was created but loading did not finish it returns the
// tab together with ErrNavigationTimeout.
type Browser interface {
	Open(ctx context.Context, url string) (Tab, error)
}

// Truncate cuts s to at most ContentCap runes.
func Truncate(s string) string {
	return truncateRunes(s, ContentCap)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func runeLen(s string) int {
	return len([]rune(s))
}
