// Package export provides the export command for the thermal event store
package export

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/datastore"
	"github.com/fusionvision/thermal-events-go/internal/observability"
	"github.com/fusionvision/thermal-events-go/internal/schema"
)

// pageSize is the number of events fetched per query. The store caps
// unbounded queries, so the full result set is paged through explicitly.
const pageSize = 500

var (
	experimentID int64
	lineOfSight  string
	outFile      string
	useIDKeys    bool
)

// Command creates and returns the export command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the thermal events of an experiment to an events file",
		Long: `Export queries the thermal events of one experiment, optionally narrowed to
a line of sight, and writes them with their instances to a JSON events file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings)
		},
	}

	cmd.Flags().Int64Var(&experimentID, "experiment-id", 0, "Experiment whose events are exported (required)")
	cmd.Flags().StringVar(&lineOfSight, "line-of-sight", "", "Only export events seen from this line of sight")
	cmd.Flags().StringVar(&outFile, "out", "thermal_events.json", "Output file")
	cmd.Flags().BoolVar(&useIDKeys, "use-id-keys", false, "Key the file by database id instead of running index")
	_ = cmd.MarkFlagRequired("experiment-id")

	return cmd
}

func runExport(settings *conf.Settings) error {
	ctx := context.Background()

	dbMetrics, err := monitoringMetrics(settings)
	if err != nil {
		return err
	}

	store := datastore.New(settings, dbMetrics)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filters := datastore.NewEventFilters().WithExperimentID(experimentID)
	if lineOfSight != "" {
		filters = filters.WithLineOfSight(lineOfSight)
	}

	var events []*schema.ThermalEvent
	for offset := 0; ; offset += pageSize {
		page, err := store.SearchThermalEvents(ctx, filters.WithLimit(pageSize).WithOffset(offset))
		if err != nil {
			return err
		}
		for i := range page {
			events = append(events, schema.FromModel(&page[i]))
		}
		if len(page) < pageSize {
			break
		}
	}

	if err := schema.WriteEventsFile(outFile, events, useIDKeys); err != nil {
		return err
	}

	fmt.Printf("Exported %d thermal event(s) to %s\n", len(events), outFile)
	return nil
}

// monitoringMetrics assembles the metric collectors when monitoring is
// enabled in the settings.
func monitoringMetrics(settings *conf.Settings) (*datastore.Metrics, error) {
	if !settings.Monitoring.Enabled {
		return nil, nil
	}
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	return m.Datastore, nil
}
