package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Fetch the catalog and report what changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			report, err := c.app.Update(cmd.Context(), o)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func (c *CLI) newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [packages...]",
		Short: "Install packages by name or hash",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}

			o, err := overrides(cmd)
			if err != nil {
				return err
			}
			return c.app.Install(cmd.Context(), o, args)
		},
	}
}

func (c *CLI) newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Reinstall every installed package whose catalog entry changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			results, err := c.app.Upgrade(cmd.Context(), o)
			if len(results) == 0 && err == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All installed packages are current.")
			}
			return err
		},
	}
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [packages...]",
		Aliases: []string{"rm"},
		Short:   "Remove installed packages",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return nil
			}

			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			removed, err := c.app.Remove(cmd.Context(), o, args)
			out := cmd.OutOrStdout()
			for _, name := range removed {
				_, _ = fmt.Fprintf(out, "Removed %s\n", name)
			}
			for _, name := range missing(args, removed) {
				_, _ = fmt.Fprintf(out, "Not installed: %s\n", name)
			}
			return err
		},
	}
}

func (c *CLI) newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove packages the catalog no longer lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := overrides(cmd)
			if err != nil {
				return err
			}

			removed, err := c.app.Cleanup(cmd.Context(), o)
			if len(removed) == 0 && err == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean up.")
			}
			return err
		},
	}
}

// missing returns the ids that are not in got, keeping their order.
func missing(ids, got []string) []string {
	seen := make(map[string]bool, len(got))
	for _, g := range got {
		seen[g] = true
	}

	var out []string
	for _, id := range ids {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
