package web

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/iamzifei/bookmark-is-learned/internal/x"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultPollAttempts = 16

	minArticleChars  = 100
	minThreadChars   = 50
	minFallbackChars = 200
	maxInferredTitle = 100
)

// Known long-form containers, most specific first.
var articleSelectors = []string{
	`[data-testid="twitterArticleRichTextView"]`,
	`[data-testid="longformRichTextComponent"]`,
	`[data-testid="twitterArticleReadView"]`,
	`article [data-testid="richTextView"]`,
}

const (
	postSelector       = `article[data-testid="tweet"]`
	postTextSelector   = `[data-testid="tweetText"]`
	postAuthorSelector = `[data-testid="User-Name"] a[href^="/"]`
	regionSelector     = `main, [role="main"]`
)

// Elements removed from a heading-delimited body before reading its text.
var noiseSelectors = strings.Join([]string{
	`script`, `style`, `svg`, `nav`, `aside`,
	`[data-testid="placementTracking"]`,
	`[data-testid="inlinePrompt"]`,
	`[data-testid="UserCell"]`,
	`[role="button"]`,
}, ", ")

// Extractor classifies a loaded page and pulls a title and body out of it.
// It is best-effort: running out of attempts is an expected outcome.
type Extractor struct {
	Interval time.Duration
	Attempts int
}

// NewExtractor returns an Extractor polling every 500ms, 16 times.
func NewExtractor() *Extractor {
	return &Extractor{Interval: defaultPollInterval, Attempts: defaultPollAttempts}
}

// Extract polls tab until one of the structured strategies matches. Pages
// whose location does not carry identity are treated as not yet navigated
// and never extracted from.
func (e *Extractor) Extract(ctx context.Context, tab Tab, identity string, isArticle bool) *Content {
	var confirmed *Snapshot

	content, err := x.Poll(ctx, e.Interval, e.Attempts, func(attempt int) (*Content, bool) {
		snap, err := tab.Snapshot(ctx)
		if err != nil {
			slog.Debug("snapshot failed", "attempt", attempt, "error", err)
			return nil, false
		}
		if !atResource(snap.Location, identity) {
			slog.Debug("page not at requested resource yet", "attempt", attempt, "location", snap.Location, "identity", identity)
			return nil, false
		}
		confirmed = snap

		c := extractStructured(snap.Doc, isArticle)
		return c, c != nil
	})
	if err == nil {
		return content
	}
	if !errors.Is(err, x.ErrPollExhausted) {
		slog.Debug("extraction cancelled", "identity", identity, "error", err)
		return nil
	}

	if confirmed == nil {
		slog.Info("deep-fetch identity never confirmed", "identity", identity)
		return nil
	}
	return extractFallback(confirmed)
}

// atResource reports whether location is the page identified by identity:
// an exact path segment, a path prefix for non-numeric identities, or the
// bare hostname.
func atResource(location, identity string) bool {
	u, err := url.Parse(location)
	if err != nil || identity == "" {
		return false
	}
	if strings.HasPrefix(identity, "/") {
		p := path.Clean("/" + u.Path)
		return p == identity || strings.HasPrefix(p, identity+"/")
	}
	if slices.Contains(strings.Split(strings.Trim(u.Path, "/"), "/"), identity) {
		return true
	}
	return strings.EqualFold(u.Hostname(), identity)
}

func extractStructured(doc *goquery.Document, isArticle bool) *Content {
	if c := extractArticle(doc); c != nil {
		return c
	}
	// An article deep-fetch must not scrape timeline posts rendered nearby.
	if !isArticle {
		if c := extractThread(doc); c != nil {
			return c
		}
	}
	return extractHeadingLayout(doc)
}

func extractArticle(doc *goquery.Document) *Content {
	for _, sel := range articleSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		body := blockText(node)
		if runeLen(body) > minArticleChars {
			return &Content{Title: pageTitle(doc), Body: Truncate(body)}
		}
	}
	return nil
}

// extractThread collects consecutive posts by the author of the first post.
// DOM order is assumed to follow thread order.
func extractThread(doc *goquery.Document) *Content {
	var (
		author string
		parts  []string
	)

	doc.Find(postSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		a := postAuthor(s)
		if i == 0 {
			author = a
		} else if a != author {
			return false
		}
		if text := blockText(s.Find(postTextSelector).First()); text != "" {
			parts = append(parts, text)
		}
		return true
	})

	body := strings.Join(parts, "\n\n")
	if runeLen(body) <= minThreadChars {
		return nil
	}
	return &Content{Title: documentTitle(doc), Body: Truncate(body)}
}

func postAuthor(s *goquery.Selection) string {
	href, _ := s.Find(postAuthorSelector).First().Attr("href")
	return strings.ToLower(strings.Trim(href, "/"))
}

// extractHeadingLayout handles long-form pages rendered without article
// markers: two or more h1 elements inside the main region.
func extractHeadingLayout(doc *goquery.Document) *Content {
	headings := doc.Find(regionSelector).First().Find("h1")
	if headings.Length() < 2 {
		return nil
	}

	container := headings.First().Parent()
	cleaned := container.Clone()
	cleaned.Find(noiseSelectors).Remove()

	body := blockText(cleaned)
	if runeLen(body) <= minArticleChars {
		return nil
	}

	title := inferTitle(container)
	if title == "" {
		title = documentTitle(doc)
	}
	return &Content{Title: title, Body: Truncate(body)}
}

// inferTitle scans the siblings before container, nearest first, for a short
// single-line text that is not an @handle.
func inferTitle(container *goquery.Selection) string {
	for s := container.Prev(); s.Length() > 0; s = s.Prev() {
		text := blockText(s)
		if text == "" || strings.Contains(text, "\n") || strings.HasPrefix(text, "@") {
			continue
		}
		if runeLen(text) <= maxInferredTitle {
			return text
		}
	}
	return ""
}

func extractFallback(snap *Snapshot) *Content {
	text := blockText(snap.Doc.Find(regionSelector).First())
	if text == "" {
		text = readableText(snap)
	}
	if runeLen(text) <= minFallbackChars {
		return nil
	}
	return &Content{Title: documentTitle(snap.Doc), Body: Truncate(text)}
}

// readableText runs the readability heuristic over pages without a main region.
func readableText(snap *Snapshot) string {
	raw, err := snap.Doc.Html()
	if err != nil {
		return ""
	}
	pageURL, _ := url.Parse(snap.Location)
	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err != nil {
		slog.Debug("readability failed", "url", snap.Location, "error", err)
		return ""
	}
	return cleanLines(article.TextContent)
}

func pageTitle(doc *goquery.Document) string {
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return documentTitle(doc)
}

func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true,
	"footer": true, "li": true, "ul": true, "ol": true, "blockquote": true,
	"pre": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "tr": true, "table": true, "main": true, "figure": true,
}

// blockText returns the text of sel with line breaks at block boundaries.
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "br":
				sb.WriteByte('\n')
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte('\n')
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return cleanLines(sb.String())
}

// cleanLines trims every line and collapses runs of blank lines into one.
func cleanLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
