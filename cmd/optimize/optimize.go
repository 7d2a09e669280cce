// Package optimize provides the optimize command for the thermal event store
package optimize

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/datastore"
)

// Command creates and returns the optimize command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run the storage maintenance statements",
		Long: `Optimize runs the maintenance statements of the configured backend: VACUUM
and PRAGMA optimize on SQLite, ANALYZE TABLE on MySQL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(settings)
		},
	}

	return cmd
}

func runOptimize(settings *conf.Settings) error {
	store := datastore.New(settings, nil)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Optimize(context.Background()); err != nil {
		return err
	}

	fmt.Println("Database optimized")
	return nil
}
