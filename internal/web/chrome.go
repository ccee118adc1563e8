package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// ChromeBrowser opens each page in a new tab of a shared headless Chrome, so
// client-side rendering runs before extraction.
type ChromeBrowser struct {
	browserCtx context.Context
	cancel     context.CancelFunc
}

// NewChromeBrowser starts headless Chrome. execPath may be empty to let
// chromedp locate the binary.
func NewChromeBrowser(ctx context.Context, execPath string) (*ChromeBrowser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(defaultUserAgent),
		chromedp.WindowSize(1280, 2000),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &ChromeBrowser{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

// Close shuts the browser down.
func (b *ChromeBrowser) Close() {
	b.cancel()
}

func (b *ChromeBrowser) Open(ctx context.Context, rawURL string) (Tab, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)

	// Create the target before applying ctx's deadline; a deadline on the
	// first Run would tie the tab's lifetime to it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}

	tab := &chromeTab{ctx: tabCtx, cancel: cancelTab}

	navCtx, cancelNav := context.WithCancel(tabCtx)
	defer cancelNav()
	stop := context.AfterFunc(ctx, cancelNav)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(rawURL)); err != nil {
		return tab, fmt.Errorf("navigation failed: %w", err)
	}
	return tab, nil
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *chromeTab) Snapshot(ctx context.Context) (*Snapshot, error) {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var location, outer string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`location.href`, &location),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &outer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Snapshot{Location: location, Doc: doc}, nil
}

func (t *chromeTab) Close() error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	return err
}
