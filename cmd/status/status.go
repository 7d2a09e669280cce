// Package status provides the status command for the thermal event store
package status

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/datastore"
)

// Command creates and returns the status command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check connectivity and report database statistics",
		Long: `Status connects to the configured backend and reports the database size and
the row counts of the thermal event tables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(settings)
		},
	}

	return cmd
}

func runStatus(settings *conf.Settings) error {
	if settings.Database.SQLite.Enabled {
		fmt.Printf("Backend: SQLite (%s)\n", settings.Database.SQLite.Path)
	} else {
		fmt.Printf("Backend: MySQL (%s@%s:%d/%s)\n",
			settings.Database.MySQL.Username,
			settings.Database.MySQL.Host,
			settings.Database.MySQL.Port,
			settings.Database.MySQL.Database)
	}

	store := datastore.New(settings, nil)
	if err := store.Open(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Statistics(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Size:    %s\n", formatBytes(stats.SizeBytes))
	fmt.Println("Tables:")

	tables := make([]string, 0, len(stats.RowCounts))
	for table := range stats.RowCounts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("  %-40s %d\n", table, stats.RowCounts[table])
	}

	return nil
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for rest := n / unit; rest >= unit; rest /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
