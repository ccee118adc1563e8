package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iamzifei/bookmark-is-learned/internal/x"
)

const (
	defaultNavigationTimeout = 15 * time.Second
	defaultSettleDelay       = 4 * time.Second
)

// SandboxOptions contains configuration for deep-fetching
type SandboxOptions struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	PollInterval      time.Duration
	PollAttempts      int
}

// Sandbox opens allow-listed pages in throwaway browsing contexts and extracts
// their content.
type Sandbox struct {
	browser           Browser
	extractor         *Extractor
	navigationTimeout time.Duration
	settleDelay       time.Duration
}

// NewSandbox creates a new deep-fetch sandbox on top of browser. Zero option
// values fall back to the defaults (15s navigation, 4s settle, 500ms x 16 polls).
func NewSandbox(browser Browser, opts SandboxOptions) *Sandbox {
	s := &Sandbox{
		browser:           browser,
		extractor:         NewExtractor(),
		navigationTimeout: defaultNavigationTimeout,
		settleDelay:       defaultSettleDelay,
	}
	if opts.NavigationTimeout > 0 {
		s.navigationTimeout = opts.NavigationTimeout
	}
	if opts.SettleDelay > 0 {
		s.settleDelay = opts.SettleDelay
	}
	if opts.PollInterval > 0 {
		s.extractor.Interval = opts.PollInterval
	}
	if opts.PollAttempts > 0 {
		s.extractor.Attempts = opts.PollAttempts
	}
	return s
}

// FetchRemoteContent loads rawURL in a new browsing context and returns its
// content, or nil when the URL is not allow-listed, loading fails or nothing
// matched. It never returns an error; the context is always destroyed.
func (s *Sandbox) FetchRemoteContent(ctx context.Context, rawURL string, isArticle bool) (content *Content) {
	if !IsAllowedFetchURL(rawURL) {
		slog.Warn("refusing deep-fetch of non allow-listed url", "url", rawURL)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("deep-fetch panicked", "url", rawURL, "panic", r)
			content = nil
		}
	}()

	tab, err := s.open(ctx, rawURL)
	if tab == nil {
		slog.Warn("failed to open browsing context", "url", rawURL, "error", err)
		return nil
	}
	defer func() {
		if err := tab.Close(); err != nil {
			slog.Warn("failed to close browsing context", "url", rawURL, "error", err)
		}
	}()

	if err != nil {
		slog.Debug("extracting from partially loaded page", "url", rawURL, "error", err)
	}

	if err := x.Sleep(ctx, s.settleDelay); err != nil {
		return nil
	}

	content = s.extractor.Extract(ctx, tab, ResourceIdentity(rawURL), isArticle)
	if content == nil {
		slog.Info("deep-fetch found no content", "url", rawURL)
	} else {
		slog.Info("deep-fetch succeeded", "url", rawURL, "title", content.Title, "length", runeLen(content.Body))
	}
	return content
}

func (s *Sandbox) open(ctx context.Context, rawURL string) (Tab, error) {
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout)
	defer cancel()

	tab, err := s.browser.Open(navCtx, rawURL)
	if err != nil && tab != nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		err = ErrNavigationTimeout
	}
	return tab, err
}
