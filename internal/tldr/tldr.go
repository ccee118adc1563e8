package tldr

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/iamzifei/bookmark-is-learned/internal/config"
	"github.com/iamzifei/bookmark-is-learned/internal/llm"
	"github.com/iamzifei/bookmark-is-learned/internal/markdown"
	"github.com/iamzifei/bookmark-is-learned/internal/post"
	"github.com/iamzifei/bookmark-is-learned/internal/storage"
	"github.com/iamzifei/bookmark-is-learned/internal/web"
)

// Result is what one bookmark produced.
type Result struct {
	TLDR              string        `json:"tldr"`
	IsArticle         bool          `json:"isArticle"`
	ArticleContent    *web.Content  `json:"articleContent"`
	QuotedFullContent *web.Content  `json:"quotedFullContent"`
	Mode              markdown.Mode `json:"mode"`
}

type SettingsSource interface {
	Snapshot() (*config.Settings, error)
}

type Fetcher interface {
	FetchRemoteContent(ctx context.Context, rawURL string, isArticle bool) *web.Content
}

type Credentials interface {
	Get() ([]byte, error)
	Decrypt(sealed []byte) (string, error)
}

type Provider interface {
	Call(ctx context.Context, req llm.CallRequest) (string, error)
}

type Persister interface {
	Persist(ctx context.Context, in markdown.PersistInput) storage.SaveOutcome
}

// Deps are the collaborators of a Service. Store and Persister may be nil,
// which disables history and saving.
type Deps struct {
	Settings    SettingsSource
	Fetcher     Fetcher
	Credentials Credentials
	Gateway     Provider
	Store       *storage.Store
	Persister   Persister
}

// Service runs the bookmark to summary pipeline.
type Service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// GenerateSummary summarizes one bookmarked post. articleURL and quotedURL
// are optional deep-fetch targets. Only configuration and provider failures
// are returned; fetch, history and save failures are logged and absorbed.
func (s *Service) GenerateSummary(ctx context.Context, rec post.Record, articleURL, quotedURL string) (*Result, error) {
	settings, err := s.deps.Settings.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.Normalize()

	provider, err := llm.Lookup(settings.Provider)
	if err != nil {
		return nil, err
	}

	log := slog.With("author", rec.Author, "provider", provider.ID)
	log.Info("generating summary", "article_url", articleURL, "quoted_url", quotedURL)

	var apiKey string
	if settings.AIEnabled && provider.NeedsKey {
		if apiKey, err = s.resolveCredential(); err != nil {
			return nil, err
		}
	}

	article, quoted := s.deepFetch(ctx, rec, articleURL, quotedURL, settings.QuoteFetchThreshold)
	result := &Result{
		IsArticle:         article != nil,
		ArticleContent:    article,
		QuotedFullContent: quoted,
	}

	if !settings.AIEnabled {
		log.Info("AI disabled, saving raw content")
		result.Mode = markdown.ModeRaw
		s.record(ctx, settings, rec, result)
		return result, nil
	}

	prompt := llm.BuildPrompt(llm.PromptInput{
		Post:          rec,
		Article:       article,
		Quoted:        quoted,
		Language:      settings.Language,
		IsArticle:     result.IsArticle,
		HasQuotedFull: quoted != nil,
	})

	endpoint, err := llm.ResolveEndpoint(provider.ID, settings.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := llm.Authorize(llm.NewOriginGrants(settings.GrantedOrigins), endpoint); err != nil {
		return nil, err
	}

	text, err := s.deps.Gateway.Call(ctx, llm.CallRequest{
		ProviderID: provider.ID,
		APIKey:     apiKey,
		Endpoint:   endpoint,
		Model:      settings.Model,
		Prompt:     prompt,
	})
	if err != nil {
		log.Warn("provider call failed", "error", err)
		return nil, err
	}

	result.TLDR = text
	result.Mode = markdown.ParseMode(settings.SaveMode)
	s.record(ctx, settings, rec, result)
	return result, nil
}

func (s *Service) resolveCredential() (string, error) {
	if s.deps.Credentials == nil {
		return "", fmt.Errorf("%w: no credential store", ErrMissingCredential)
	}
	sealed, err := s.deps.Credentials.Get()
	if err != nil {
		return "", err
	}
	return s.deps.Credentials.Decrypt(sealed)
}

// deepFetch loads the article and the quoted post in parallel. The quoted
// post is only fetched when its inline preview looks truncated.
func (s *Service) deepFetch(ctx context.Context, rec post.Record, articleURL, quotedURL string, threshold int) (article, quoted *web.Content) {
	if s.deps.Fetcher == nil {
		return nil, nil
	}

	var g errgroup.Group
	if articleURL != "" {
		g.Go(func() error {
			article = s.deps.Fetcher.FetchRemoteContent(ctx, articleURL, true)
			if article == nil {
				slog.Info("article fetch yielded nothing", "url", articleURL)
			}
			return nil
		})
	}
	if quotedURL != "" && utf8.RuneCountInString(rec.QuotedText) < threshold {
		g.Go(func() error {
			quoted = s.deps.Fetcher.FetchRemoteContent(ctx, quotedURL, false)
			if quoted == nil {
				slog.Info("quoted fetch yielded nothing", "url", quotedURL)
			}
			return nil
		})
	}
	_ = g.Wait()
	return article, quoted
}

// record appends history and saves the note. Neither can fail the request.
func (s *Service) record(ctx context.Context, settings *config.Settings, rec post.Record, result *Result) {
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	if s.deps.Store != nil {
		text := rec.MainText()
		if result.ArticleContent != nil && result.ArticleContent.Title != "" {
			text = result.ArticleContent.Title
		}
		source := rec.PermalinkURL
		if source == "" {
			source = rec.OriginURL
		}

		entry := storage.NewHistoryEntry(now, rec.Author, source, text, result.TLDR, result.IsArticle)
		if err := storage.NewHistory(s.deps.Store, settings.HistoryLimit).Append(entry); err != nil {
			slog.Warn("failed to append history", "error", err)
		}
	}

	if s.deps.Persister != nil {
		outcome := s.deps.Persister.Persist(ctx, markdown.PersistInput{
			DocumentInput: markdown.DocumentInput{
				Post:        rec,
				TLDR:        result.TLDR,
				Article:     result.ArticleContent,
				Quoted:      result.QuotedFullContent,
				IsArticle:   result.IsArticle,
				Mode:        result.Mode,
				Now:         now,
				FrontMatter: settings.FrontMatter,
			},
			SaveDir: settings.SaveDir,
		})
		slog.Debug("persisted", "success", outcome.Success, "method", outcome.Method, "path", outcome.Path)
	}
}
