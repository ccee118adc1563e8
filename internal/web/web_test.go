package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTab replays a fixed list of pages; the last one repeats.
type fakeTab struct {
	pages     []fakePage
	calls     int
	closed    atomic.Bool
	panicking bool
}

type fakePage struct {
	location string
	html     string
}

func (t *fakeTab) Snapshot(ctx context.Context) (*Snapshot, error) {
	if t.panicking {
		panic("renderer crashed")
	}
	p := t.pages[min(t.calls, len(t.pages)-1)]
	t.calls++
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Location: p.location, Doc: doc}, nil
}

func (t *fakeTab) Close() error {
	t.closed.Store(true)
	return nil
}

type fakeBrowser struct {
	tab    *fakeTab
	err    error
	opened []string
}

func (b *fakeBrowser) Open(ctx context.Context, url string) (Tab, error) {
	b.opened = append(b.opened, url)
	if b.tab == nil {
		return nil, b.err
	}
	return b.tab, b.err
}

func fastSandbox(b Browser) *Sandbox {
	return NewSandbox(b, SandboxOptions{
		NavigationTimeout: 50 * time.Millisecond,
		SettleDelay:       time.Millisecond,
		PollInterval:      time.Millisecond,
		PollAttempts:      4,
	})
}

var longText = strings.Repeat("Long-form paragraph about distributed systems. ", 5)

func articlePage(title string) string {
	return `<html><head><title>` + title + ` / X</title></head><body><main>
<h1>` + title + `</h1>
<div data-testid="twitterArticleRichTextView"><p>` + longText + `</p><p>Second paragraph.</p></div>
</main></body></html>`
}

func threadPage(authors ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>Thread</title></head><body><main>`)
	for i, a := range authors {
		sb.WriteString(`<article data-testid="tweet"><div data-testid="User-Name"><a href="/` + a + `">` + a + `</a></div>`)
		sb.WriteString(`<div data-testid="tweetText">Post number ` + string(rune('A'+i)) + ` by ` + a + ` with some words in it</div></article>`)
	}
	sb.WriteString(`</main></body></html>`)
	return sb.String()
}

func TestIsAllowedFetchURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x.com/jack/status/20", true},
		{"https://twitter.com/i/article/123", true},
		{"http://www.x.com/a", true},
		{"https://sub.x.com/jack/status/20", false},
		{"https://x.com.evil.io/status/1", false},
		{"https://example.com/status/1", false},
		{"ftp://x.com/file", false},
		{"javascript:alert(1)", false},
		{"://bad", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAllowedFetchURL(tt.url), tt.url)
	}
}

func TestResourceIdentity(t *testing.T) {
	assert.Equal(t, "1790000000000000001", ResourceIdentity("https://x.com/jack/status/1790000000000000001"))
	assert.Equal(t, "1790000000000000001", ResourceIdentity("https://x.com/jack/status/1790000000000000001/photo/1"))
	assert.Equal(t, "42", ResourceIdentity("https://x.com/i/article/42"))
	assert.Equal(t, "/jack/highlights", ResourceIdentity("https://x.com/jack/highlights/"))
}

func TestExtractor_Article(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/42", html: articlePage("Raft explained")}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 3}).Extract(context.Background(), tab, "42", true)

	require.NotNil(t, c)
	assert.Equal(t, "Raft explained", c.Title)
	assert.Contains(t, c.Body, "Long-form paragraph")
	assert.Contains(t, c.Body, "\n\nSecond paragraph.")
}

func TestExtractor_WaitsForIdentity(t *testing.T) {
	stale := fakePage{location: "https://x.com/home", html: articlePage("Wrong article")}
	fresh := fakePage{location: "https://x.com/i/article/42", html: articlePage("Right article")}
	tab := &fakeTab{pages: []fakePage{stale, stale, fresh}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 5}).Extract(context.Background(), tab, "42", true)

	require.NotNil(t, c)
	assert.Equal(t, "Right article", c.Title)
	assert.Equal(t, 3, tab.calls)
}

func TestExtractor_IdentityNeverMatches(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/home", html: articlePage("Wrong article")}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 4}).Extract(context.Background(), tab, "42", true)

	assert.Nil(t, c)
	assert.Equal(t, 4, tab.calls)
}

func TestExtractor_IdentityIsWholeSegment(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/1234", html: articlePage("Stale article")}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 3}).Extract(context.Background(), tab, ResourceIdentity("https://x.com/i/article/123"), true)

	assert.Nil(t, c)
	assert.Equal(t, 3, tab.calls)
}

func TestAtResource(t *testing.T) {
	tests := []struct {
		location string
		identity string
		want     bool
	}{
		{"https://x.com/jack/status/123", "123", true},
		{"https://x.com/jack/status/123/photo/1", "123", true},
		{"https://x.com/jack/status/1234", "123", false},
		{"https://x.com/jack/status/9123", "123", false},
		{"https://x.com/home?ref=123", "123", false},
		{"https://x.com/jack/highlights", "/jack/highlights", true},
		{"https://x.com/jack/highlights/", "/jack/highlights", true},
		{"https://x.com/jack/highlightsx", "/jack/highlights", false},
		{"https://x.com/", "x.com", true},
		{"https://x.com/jack", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, atResource(tt.location, tt.identity), "%s vs %s", tt.location, tt.identity)
	}
}

// cancellingTab cancels the extraction after the first snapshot.
type cancellingTab struct {
	*fakeTab
	cancel context.CancelFunc
}

func (t *cancellingTab) Snapshot(ctx context.Context) (*Snapshot, error) {
	defer t.cancel()
	return t.fakeTab.Snapshot(ctx)
}

func TestExtractor_CancelSkipsFallback(t *testing.T) {
	body := strings.Repeat("Plain region text without markers. ", 10)
	page := `<html><head><title>Plain</title></head><body><main><p>` + body + `</p></main></body></html>`

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tab := &cancellingTab{fakeTab: &fakeTab{pages: []fakePage{{location: "https://x.com/a/status/5", html: page}}}, cancel: cancel}

	c := (&Extractor{Interval: time.Hour, Attempts: 3}).Extract(ctx, tab, "5", false)

	assert.Nil(t, c)
	assert.Equal(t, 1, tab.calls)
}

func TestExtractor_ThreadStopsAtAuthorChange(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/alice/status/7", html: threadPage("alice", "alice", "bob", "alice")}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 2}).Extract(context.Background(), tab, "7", false)

	require.NotNil(t, c)
	assert.Equal(t, "Post number A by alice with some words in it\n\nPost number B by alice with some words in it", c.Body)
	assert.NotContains(t, c.Body, "bob")
	assert.Equal(t, "Thread", c.Title)
}

func TestExtractor_ArticleHintSkipsThread(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/alice/status/7", html: threadPage("alice", "alice")}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 2}).Extract(context.Background(), tab, "7", true)

	assert.Nil(t, c)
}

func TestExtractor_HeadingLayout(t *testing.T) {
	page := `<html><head><title>Doc title</title></head><body><main>
<div><span>@alice</span></div>
<div><span>Designing for failure</span></div>
<div>
  <h1>Part one</h1><p>` + longText + `</p>
  <div data-testid="placementTracking">Subscribe to Premium</div>
  <h1>Part two</h1><p>More text.</p>
</div></main></body></html>`
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/9", html: page}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 2}).Extract(context.Background(), tab, "9", true)

	require.NotNil(t, c)
	assert.Equal(t, "Designing for failure", c.Title)
	assert.Contains(t, c.Body, "Part two")
	assert.NotContains(t, c.Body, "Premium")
}

func TestExtractor_FallbackAfterBudget(t *testing.T) {
	body := strings.Repeat("Plain region text without markers. ", 10)
	page := `<html><head><title>Plain</title></head><body><main><p>` + body + `</p></main></body></html>`
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/a/status/5", html: page}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 3}).Extract(context.Background(), tab, "5", false)

	require.NotNil(t, c)
	assert.Equal(t, "Plain", c.Title)
	assert.Equal(t, 3, tab.calls)
}

func TestExtractor_FallbackTooShort(t *testing.T) {
	page := `<html><body><main><p>tiny</p></main></body></html>`
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/a/status/5", html: page}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 2}).Extract(context.Background(), tab, "5", false)

	assert.Nil(t, c)
}

func TestExtractor_TruncatesBody(t *testing.T) {
	huge := strings.Repeat("字", ContentCap+500)
	page := `<html><body><div data-testid="longformRichTextComponent"><p>` + huge + `</p></div></body></html>`
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/1", html: page}}}

	c := (&Extractor{Interval: time.Millisecond, Attempts: 1}).Extract(context.Background(), tab, "1", true)

	require.NotNil(t, c)
	assert.Equal(t, ContentCap, runeLen(c.Body))
}

func TestSandbox_RefusesDisallowedHost(t *testing.T) {
	b := &fakeBrowser{tab: &fakeTab{}}

	assert.Nil(t, fastSandbox(b).FetchRemoteContent(context.Background(), "https://evil.example/status/1", false))
	assert.Empty(t, b.opened)
}

func TestSandbox_ClosesTabOnSuccess(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/42", html: articlePage("Raft")}}}
	b := &fakeBrowser{tab: tab}

	c := fastSandbox(b).FetchRemoteContent(context.Background(), "https://x.com/i/article/42", true)

	require.NotNil(t, c)
	assert.True(t, tab.closed.Load())
}

func TestSandbox_ClosesTabOnPanic(t *testing.T) {
	tab := &fakeTab{panicking: true}
	b := &fakeBrowser{tab: tab}

	c := fastSandbox(b).FetchRemoteContent(context.Background(), "https://x.com/i/article/42", true)

	assert.Nil(t, c)
	assert.True(t, tab.closed.Load())
}

func TestSandbox_ClosesTabOnMiss(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/home", html: "<html></html>"}}}
	b := &fakeBrowser{tab: tab}

	c := fastSandbox(b).FetchRemoteContent(context.Background(), "https://x.com/i/article/42", true)

	assert.Nil(t, c)
	assert.True(t, tab.closed.Load())
}

func TestSandbox_OpenFailure(t *testing.T) {
	b := &fakeBrowser{err: errors.New("no browser")}

	assert.Nil(t, fastSandbox(b).FetchRemoteContent(context.Background(), "https://x.com/i/article/42", true))
	assert.Len(t, b.opened, 1)
}

func TestSandbox_ExtractsAfterNavigationTimeout(t *testing.T) {
	tab := &fakeTab{pages: []fakePage{{location: "https://x.com/i/article/42", html: articlePage("Slow page")}}}
	b := &fakeBrowser{tab: tab, err: context.DeadlineExceeded}

	c := fastSandbox(b).FetchRemoteContent(context.Background(), "https://x.com/i/article/42", true)

	require.NotNil(t, c)
	assert.Equal(t, "Slow page", c.Title)
	assert.True(t, tab.closed.Load())
}

func TestHTTPBrowser_FollowsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/i/article/42", http.StatusFound)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(articlePage("Served")))
	}))
	defer server.Close()

	tab, err := NewHTTPBrowser(0).Open(context.Background(), server.URL+"/old")
	require.NoError(t, err)

	snap, err := tab.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/i/article/42", snap.Location)
	assert.Equal(t, "Served", strings.TrimSpace(snap.Doc.Find("h1").Text()))

	require.NoError(t, tab.Close())
	_, err = tab.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestHTTPBrowser_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tab, err := NewHTTPBrowser(0).Open(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Nil(t, tab)
}
