package post

import (
	"errors"
	"net/url"
	"strings"

	"github.com/iamzifei/bookmark-is-learned/internal/x"
)

// ErrEmptyRecord is returned by Validate when the record carries no text at all.
var ErrEmptyRecord = errors.New("post has no extractable text")

// Metrics holds the engagement counters shown under a post. Values are kept
// as the platform renders them ("1.2K", "3万").
type Metrics struct {
	Replies  string `json:"replies"`
	Retweets string `json:"retweets"`
	Likes    string `json:"likes"`
	Views    string `json:"views"`
}

// Record represents a bookmarked post as scraped from the origin page.
type Record struct {
	PrimaryText    string   `json:"primaryText,omitempty"`
	CardText       string   `json:"cardText,omitempty"`
	FallbackText   string   `json:"fallbackText,omitempty"`
	QuotedText     string   `json:"quotedText,omitempty"`
	QuotedAuthor   string   `json:"quotedAuthor,omitempty"`
	Author         string   `json:"author"`
	PermalinkURL   string   `json:"permalinkUrl"`
	OriginURL      string   `json:"originUrl"`
	Metrics        Metrics  `json:"metrics"`
	ReferencedURLs []string `json:"referencedUrls,omitempty"`
}

// Validate rejects records that the extractor produced without any text.
func (r *Record) Validate() error {
	for _, s := range []string{r.PrimaryText, r.CardText, r.FallbackText, r.QuotedText} {
		if strings.TrimSpace(s) != "" {
			return nil
		}
	}
	return ErrEmptyRecord
}

// Normalize fills metric defaults in place.
func (r *Record) Normalize() {
	for _, m := range []*string{&r.Metrics.Replies, &r.Metrics.Retweets, &r.Metrics.Likes, &r.Metrics.Views} {
		if strings.TrimSpace(*m) == "" {
			*m = "0"
		}
	}
}

// MainText returns the best available body text: primary, card, then fallback.
func (r *Record) MainText() string {
	for _, s := range []string{r.PrimaryText, r.CardText, r.FallbackText} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Handle returns the author handle from the permalink path, e.g. "jack" for
// https://x.com/jack/status/20. Empty when the permalink has no usable segment.
func (r *Record) Handle() string {
	u, err := url.Parse(r.PermalinkURL)
	if err != nil {
		return ""
	}
	seg, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	switch seg {
	case "", "i", "home", "search", "explore":
		return ""
	}
	return seg
}

var platformHosts = map[string]bool{
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
	"pbs.twimg.com":      true,
	"video.twimg.com":    true,
	"abs.twimg.com":      true,
}

// IsPlatformLink reports whether raw points back into the platform itself
// (navigation, profile, media) rather than to external content. t.co short
// links are kept since they wrap external targets.
func IsPlatformLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return true
	}
	return platformHosts[strings.ToLower(u.Hostname())]
}

// NormalizeLinks deduplicates links, drops platform links and anything that
// belongs to the quoted sub-post.
func NormalizeLinks(links, quotedLinks []string) []string {
	quoted := make(map[string]bool, len(quotedLinks))
	for _, l := range quotedLinks {
		quoted[strings.TrimSpace(l)] = true
	}

	trimmed := make([]string, 0, len(links))
	for _, l := range links {
		trimmed = append(trimmed, strings.TrimSpace(l))
	}

	return x.Collect(trimmed, func(l string) bool {
		return l != "" && !quoted[l] && !IsPlatformLink(l)
	})
}
