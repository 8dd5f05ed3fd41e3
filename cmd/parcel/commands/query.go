package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/parcel/internal/app"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog packages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			installed, _ := cmd.Flags().GetBool("installed")
			outdated, _ := cmd.Flags().GetBool("outdated")

			filter := app.ListAll
			switch {
			case outdated:
				filter = app.ListOutdated
			case installed:
				filter = app.ListInstalled
			}
			return c.list(cmd, filter)
		},
	}

	cmd.Flags().BoolP("installed", "i", false, "Only list installed packages")
	cmd.Flags().Bool("outdated", false, "Only list installed packages with a newer catalog entry")

	return cmd
}

func (c *CLI) newOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List installed packages with a newer catalog entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.list(cmd, app.ListOutdated)
		},
	}
}

func (c *CLI) list(cmd *cobra.Command, filter app.ListFilter) error {
	o, err := overrides(cmd)
	if err != nil {
		return err
	}

	pkgs, err := c.app.List(cmd.Context(), o, filter)
	if err != nil {
		return err
	}

	if len(pkgs) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No packages.")
		return nil
	}
	printList(cmd.OutOrStdout(), pkgs)
	return nil
}

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [packages...]",
		Short: "Re-hash installed packages against their receipts",
		Long:  "Re-hash installed packages against their receipts. Without arguments every installed package is checked.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			checked, err := c.app.Verify(cmd.Context(), o, args)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Verified %d package(s).\n", len(checked))
			return nil
		},
	}
}

func (c *CLI) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show the catalog entry and install state of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			d, err := c.app.Info(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			printDetails(cmd.OutOrStdout(), d)
			return nil
		},
	}
}
