// Package commands implements the CLI commands for the parcel package manager.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/parcel/internal/adapters/config" //nolint:depguard // Header parsing is shared with the loader
	"go.trai.ch/parcel/internal/app"
	"go.trai.ch/parcel/internal/build"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/engine/installer"
)

// CLI represents the command line interface for parcel.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Update(ctx context.Context, o domain.Overrides) (domain.DiffReport, error)
	Install(ctx context.Context, o domain.Overrides, ids []string) error
	Upgrade(ctx context.Context, o domain.Overrides) ([]installer.Result, error)
	Remove(ctx context.Context, o domain.Overrides, ids []string) ([]string, error)
	Cleanup(ctx context.Context, o domain.Overrides) ([]string, error)
	Verify(ctx context.Context, o domain.Overrides, ids []string) ([]string, error)
	List(ctx context.Context, o domain.Overrides, filter app.ListFilter) ([]app.PackageInfo, error)
	Info(ctx context.Context, o domain.Overrides, id string) (*app.Details, error)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "parcel",
		Short:         "Install and maintain packages from a content-addressed catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to a parcel.yaml file")
	flags.String("root", "", "Installation root directory")
	flags.String("catalog-url", "", "URL the catalog is fetched from")
	flags.StringArrayP("header", "H", nil, "Extra request header as key=value (repeatable)")
	flags.StringP("output", "o", "", "Output mode: auto, interactive or linear")
	flags.Bool("log-json", false, "Write log records as JSON")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newUpdateCmd())
	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newUpgradeCmd())
	rootCmd.AddCommand(c.newRemoveCmd())
	rootCmd.AddCommand(c.newCleanupCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newOutdatedCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newInfoCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// overrides collects the persistent flags the user actually set.
func overrides(cmd *cobra.Command) (domain.Overrides, error) {
	flags := cmd.Flags()

	var o domain.Overrides
	o.ConfigFile, _ = flags.GetString("config")
	o.Root, _ = flags.GetString("root")
	o.CatalogURL, _ = flags.GetString("catalog-url")
	o.OutputMode, _ = flags.GetString("output")
	o.LogJSON, _ = flags.GetBool("log-json")

	pairs, _ := flags.GetStringArray("header")
	headers, err := config.ParseHeaders(pairs)
	if err != nil {
		return domain.Overrides{}, err
	}
	o.Headers = headers

	return o, nil
}
