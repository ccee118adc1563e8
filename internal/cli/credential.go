package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iamzifei/bookmark-is-learned/internal/credential"
)

func (a *app) credentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the provider API key",
	}

	set := &cobra.Command{
		Use:   "set [api-key]",
		Short: "Store the API key encrypted; reads stdin when no key is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read api key: %w", err)
				}
				key = line
			}
			return a.setCredential(strings.TrimSpace(key))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setCredential("")
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}

func (a *app) setCredential(key string) error {
	settings, err := a.settings()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if err := credential.NewStore(store, settings.KeyPath).Set(key); err != nil {
		return err
	}
	if key == "" {
		fmt.Fprintln(a.out, "API key removed.")
	} else {
		fmt.Fprintln(a.out, "API key saved.")
	}
	return nil
}
