package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			outcome, err := store.LastSave()
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintln(a.out, "Nothing saved yet.")
				return nil
			}
			if err != nil {
				return err
			}
			printOutcome(a.out, outcome)
			return nil
		},
	}
}

func printOutcome(w io.Writer, o *storage.SaveOutcome) {
	when := o.Timestamp.Local().Format(time.DateTime)
	if !o.Success {
		fmt.Fprintf(w, "Save failed at %s: %s\n", when, o.Error)
		return
	}
	fmt.Fprintf(w, "Saved via %s at %s: %s\n", o.Method, when, o.Path)
}
