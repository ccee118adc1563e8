package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

type retryLogger struct{}

func (retryLogger) Printf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// NewRetryableClient returns the HTTP client used for page loads. retries is
// the number of transport-level retries; 0 disables them.
func NewRetryableClient(retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = time.Second
	client.RetryWaitMax = 5 * time.Second
	client.Logger = retryLogger{}

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		retry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry || err != nil {
			return retry, err
		}

		// Also retry on 429 Too Many Requests
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return true, nil
		}

		return false, nil
	}

	return client
}

// HTTPBrowser loads pages with plain HTTP requests. Each tab gets its own
// cookie jar; pages are not scripted, so the DOM is what the server sent.
type HTTPBrowser struct {
	Retries   int
	UserAgent string
}

// NewHTTPBrowser creates a browser backed by retryablehttp.
func NewHTTPBrowser(retries int) *HTTPBrowser {
	return &HTTPBrowser{Retries: retries, UserAgent: defaultUserAgent}
}

func (b *HTTPBrowser) Open(ctx context.Context, rawURL string) (Tab, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}

	client := NewRetryableClient(b.Retries)
	client.HTTPClient.Jar = jar

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing page: %w", err)
	}

	return &httpTab{location: resp.Request.URL.String(), doc: doc}, nil
}

type httpTab struct {
	mu       sync.Mutex
	location string
	doc      *goquery.Document
}

func (t *httpTab) Snapshot(ctx context.Context) (*Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.doc == nil {
		return nil, fmt.Errorf("tab closed")
	}
	return &Snapshot{Location: t.location, Doc: t.doc}, nil
}

func (t *httpTab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.doc = nil
	return nil
}
