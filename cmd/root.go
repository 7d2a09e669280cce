package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fusionvision/thermal-events-go/cmd/createdb"
	"github.com/fusionvision/thermal-events-go/cmd/export"
	"github.com/fusionvision/thermal-events-go/cmd/importer"
	"github.com/fusionvision/thermal-events-go/cmd/optimize"
	"github.com/fusionvision/thermal-events-go/cmd/status"
	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "thermal-events",
		Short:   "Thermal event database CLI",
		Long:    `Command line interface of the thermal event store: create and seed the database, import and export events files, and run maintenance against the configured SQLite or MySQL backend.`,
		Version: settings.Version,
		// Runtime errors are reported once by cobra; dumping the usage
		// text for them only buries the message.
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		createdb.Command(settings),
		export.Command(settings),
		importer.Command(settings),
		status.Command(settings),
		optimize.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
