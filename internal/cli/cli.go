package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/config"
	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

// Version is set at build time.
var Version = "dev"

// app holds the global flags and the lazily opened store.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	source *config.Source
	store  *storage.Store

	in  io.Reader
	out io.Writer
	err io.Writer
}

// NewRootCommand builds the command tree. in, out and errOut replace the
// process streams.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, err: errOut}

	root := &cobra.Command{
		Use:           "tldr",
		Short:         "Summarize bookmarked posts and save them as markdown notes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setupLogging()
			a.source = config.NewSource(a.configPath)
			if a.dbPath != "" {
				a.source.Set("db_path", a.dbPath)
			}
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&a.dbPath, "db", "", "Path to database file (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		a.summarizeCommand(),
		a.historyCommand(),
		a.statusCommand(),
		a.credentialCommand(),
		a.helperCommand(),
		a.notesCommand(),
		a.configCommand(),
		a.providersCommand(),
	)
	a.closeStoreAfter(root)
	return root
}

// closeStoreAfter wraps every runnable command so the store is released
// whether or not the command fails.
func (a *app) closeStoreAfter(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.closeStore()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.closeStoreAfter(sub)
	}
}

func (a *app) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
	a.store = nil
}

// Execute runs the CLI against the process streams.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func (a *app) setupLogging() {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.err, &slog.HandlerOptions{Level: level})))
}

func (a *app) settings() (*config.Settings, error) {
	return a.source.Snapshot()
}

func (a *app) openStore() (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	settings, err := a.settings()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStore(settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store
	return store, nil
}
