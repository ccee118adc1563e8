package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear past summaries",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List past summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.history()
			if err != nil {
				return err
			}
			entries, err := history.List()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printHistory(a.out, entries)
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.history()
			if err != nil {
				return err
			}
			if err := history.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "History cleared.")
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func (a *app) history() (*storage.History, error) {
	settings, err := a.settings()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return storage.NewHistory(store, settings.HistoryLimit), nil
}

func printHistory(w io.Writer, entries []storage.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAUTHOR\tKIND\tPREVIEW")
	for _, e := range entries {
		kind := "post"
		if e.IsArticle {
			kind = "article"
		}
		preview := strings.ReplaceAll(e.Preview, "\n", " ")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Author, kind, preview)
	}
	tw.Flush()
}
