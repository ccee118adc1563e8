package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/config"
	"github.com/iamzifei/bookmark-is-learned/internal/credential"
	"github.com/iamzifei/bookmark-is-learned/internal/llm"
	"github.com/iamzifei/bookmark-is-learned/internal/markdown"
	"github.com/iamzifei/bookmark-is-learned/internal/nativehost"
	"github.com/iamzifei/bookmark-is-learned/internal/post"
	"github.com/iamzifei/bookmark-is-learned/internal/tldr"
	"github.com/iamzifei/bookmark-is-learned/internal/web"
)

type summarizeOptions struct {
	articleURL string
	quotedURL  string
	asJSON     bool
}

func (a *app) summarizeCommand() *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "summarize [record.json|-]",
		Short: "Summarize one bookmarked post and save it as a note",
		Long: "Reads a post record as JSON from the given file or stdin, deep-fetches the\n" +
			"linked article and quoted post when given, summarizes it with the configured\n" +
			"provider and saves the note.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			rec, err := a.readRecord(path)
			if err != nil {
				return err
			}
			return a.summarize(cmd.Context(), rec, opts)
		},
	}

	cmd.Flags().StringVar(&opts.articleURL, "article-url", "", "Long-form article to deep-fetch")
	cmd.Flags().StringVar(&opts.quotedURL, "quoted-url", "", "Quoted post to deep-fetch")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func (a *app) readRecord(path string) (post.Record, error) {
	var r io.Reader = a.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return post.Record{}, err
		}
		defer f.Close()
		r = f
	}

	var rec post.Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return post.Record{}, fmt.Errorf("failed to decode post record: %w", err)
	}
	return rec, nil
}

func (a *app) summarize(ctx context.Context, rec post.Record, opts summarizeOptions) error {
	settings, err := a.settings()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}

	browser, closeBrowser, err := newBrowser(ctx, settings)
	if err != nil {
		return err
	}
	defer closeBrowser()
	if settings.Browser != "chrome" && (opts.articleURL != "" || opts.quotedURL != "") {
		slog.Warn("deep-fetch without script execution may find nothing; set browser = \"chrome\" for client-rendered pages")
	}

	gatewayOpts := []llm.GatewayOption{}
	persister := &markdown.Persister{
		Downloader: &markdown.FileDownloader{Dir: settings.DownloadsDir},
		Recorder:   store,
		Subfolder:  settings.DownloadSubfolder,
	}
	if settings.HelperPath != "" {
		helper := nativehost.NewClient(settings.HelperPath)
		gatewayOpts = append(gatewayOpts, llm.WithLocalModel(helper))
		persister.Helper = helper
	}

	svc := tldr.NewService(tldr.Deps{
		Settings:    a.source,
		Fetcher:     web.NewSandbox(browser, web.SandboxOptions{}),
		Credentials: credential.NewStore(store, settings.KeyPath),
		Gateway:     llm.NewGateway(gatewayOpts...),
		Store:       store,
		Persister:   persister,
	})

	result, err := svc.GenerateSummary(ctx, rec, opts.articleURL, opts.quotedURL)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.TLDR != "" {
		fmt.Fprintln(a.out, result.TLDR)
	}
	if outcome, err := store.LastSave(); err == nil {
		printOutcome(a.out, outcome)
	}
	return nil
}

// newBrowser picks the deep-fetch backend. The returned func releases it.
func newBrowser(ctx context.Context, settings *config.Settings) (web.Browser, func(), error) {
	switch settings.Browser {
	case "chrome":
		b, err := web.NewChromeBrowser(ctx, settings.ChromePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "", "http":
		return web.NewHTTPBrowser(settings.FetchRetries), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown browser %q (want http or chrome)", settings.Browser)
	}
}
