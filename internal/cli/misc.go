package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/config"
	"github.com/iamzifei/bookmark-is-learned/internal/llm"
	"github.com/iamzifei/bookmark-is-learned/internal/markdown"
	"github.com/iamzifei/bookmark-is-learned/internal/nativehost"
)

func (a *app) helperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helper",
		Short: "Talk to the native helper",
	}

	ping := &cobra.Command{
		Use:   "ping",
		Short: "Check that the native helper is installed and answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings()
			if err != nil {
				return err
			}
			if settings.HelperPath == "" {
				return fmt.Errorf("helper_path is not configured")
			}
			version, err := nativehost.NewClient(settings.HelperPath).Ping(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Helper %s is available.\n", version)
			return nil
		},
	}

	cmd.AddCommand(ping)
	return cmd
}

func (a *app) notesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notes [dir]",
		Short: "List saved notes, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings()
			if err != nil {
				return err
			}

			dir := filepath.Join(settings.DownloadsDir, settings.DownloadSubfolder)
			if len(args) == 1 {
				dir = args[0]
			}

			notes, err := markdown.ListNotes(dir)
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Fprintln(a.out, "No notes found.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TITLE\tAUTHOR\tPATH")
			for _, n := range notes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Title, n.Author, n.Path)
			}
			return tw.Flush()
		},
	}
}

const browserHint = `Deep-fetch uses browser = "http" by default, which does not run page scripts.
Pages rendered client-side (articles, threads) usually need browser = "chrome".`

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.Dir(), "config.toml")
			switch {
			case len(args) == 1:
				path = args[0]
			case a.configPath != "":
				path = a.configPath
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.GenerateDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Generated default configuration at: %s\n", path)
			fmt.Fprintln(a.out, browserHint)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "provider\t%s\n", s.Provider)
			fmt.Fprintf(tw, "model\t%s\n", s.Model)
			fmt.Fprintf(tw, "language\t%s\n", s.Language)
			fmt.Fprintf(tw, "base_url\t%s\n", s.BaseURL)
			fmt.Fprintf(tw, "save_mode\t%s\n", s.SaveMode)
			fmt.Fprintf(tw, "ai_enabled\t%t\n", s.AIEnabled)
			fmt.Fprintf(tw, "save_dir\t%s\n", s.SaveDir)
			fmt.Fprintf(tw, "granted_origins\t%s\n", strings.Join(s.GrantedOrigins, ", "))
			fmt.Fprintf(tw, "browser\t%s\n", s.Browser)
			fmt.Fprintf(tw, "db_path\t%s\n", s.DBPath)
			return tw.Flush()
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}

func (a *app) providersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDEFAULT MODEL\tKEY")
			for _, id := range llm.ProviderIDs() {
				p := llm.Providers[id]
				key := "required"
				if !p.NeedsKey {
					key = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Model, key)
			}
			return tw.Flush()
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
