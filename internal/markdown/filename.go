package markdown

import (
	"strings"
	"time"
	"unicode"

	"github.com/iamzifei/bookmark-is-learned/internal/post"
)

const (
	maxHandleLen   = 30
	maxTitleLen    = 50
	minWordTrimPos = 20

	unknownHandle = "unknown"
	untitled      = "untitled"

	timestampLayout = "2006-01-02_150405"
)

var reservedChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// sanitize makes s safe as part of a file name on every common filesystem.
func sanitize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = reservedChars.Replace(s)
	return strings.TrimSpace(strings.TrimLeft(s, "."))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// truncateTitle cuts to maxTitleLen runes and backs off to the last word
// boundary when it lies past minWordTrimPos.
func truncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleLen {
		return s
	}
	cut := r[:maxTitleLen]
	for i := len(cut) - 1; i > minWordTrimPos; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimSpace(string(cut))
}

// BuildFilename returns "<handle>-<title>-<timestamp>.md". title falls back to
// excerpt and then to a placeholder.
func BuildFilename(rec post.Record, title, excerpt string, now time.Time) string {
	handle := sanitize(truncateRunes(sanitize(rec.Handle()), maxHandleLen))
	if handle == "" {
		handle = unknownHandle
	}

	name := sanitize(title)
	if name == "" {
		name = sanitize(excerpt)
	}
	name = sanitize(truncateTitle(name))
	if name == "" {
		name = untitled
	}

	return handle + "-" + name + "-" + now.Format(timestampLayout) + ".md"
}
