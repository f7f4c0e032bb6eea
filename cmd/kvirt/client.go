package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/service"
)

func newClientCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "List, switch, enable and disable clients",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the configured clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			clients, err := base.ListClients()
			if err != nil {
				return err
			}

			table := newTable("Client", "Type", "Enabled", "Current", "Host")
			for _, c := range clients {
				current := ""
				if c.Current {
					current = "X"
				}
				table.AddRow(c.Name, c.Type, yesNo(c.Enabled), current, c.Host)
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	})

	cmd.AddCommand(
		clientAction(a, "switch", "Make a client the default", (*service.Base).SwitchClient),
		clientAction(a, "enable", "Enable a client", (*service.Base).EnableClient),
		clientAction(a, "disable", "Disable a client", (*service.Base).DisableClient),
	)
	return cmd
}

type clientFunc func(b *service.Base, ctx context.Context, name string) (service.Result, error)

func clientAction(a *app, use, short string, fn clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CLIENT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := fn(base, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report(cmd, res, fmt.Sprintf("client %s: %s done", args[0], use))
		},
	}
}

func newKeywordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Show or persist the default value of every option",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List options and their defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			keywords := base.Keywords()
			names := make([]string, 0, len(keywords))
			for name := range keywords {
				names = append(names, name)
			}
			sort.Strings(names)

			table := newTable("Keyword", "Default Value")
			for _, name := range names {
				table.AddRow(name, cell(keywords[name]))
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "write",
		Short: "Write the effective defaults to the default section of the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.WriteDefaults(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, res, "defaults written")
		},
	})
	return cmd
}
