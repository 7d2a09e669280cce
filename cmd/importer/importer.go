// Package importer provides the import command for the thermal event store.
// The package is not named after the command because import is a Go keyword.
package importer

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/datastore"
	"github.com/fusionvision/thermal-events-go/internal/observability"
	"github.com/fusionvision/thermal-events-go/internal/schema"
)

var dryRun bool

// Command creates and returns the import command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import file.json",
		Short: "Validate an events file and store its thermal events",
		Long: `Import reads a JSON events file, validates every event exhaustively and
stores them with their instances. Validation failures are reported per event
with every failing field, and nothing is stored unless the whole file is
valid. Imported rows are assigned fresh database identities, so a file
exported from one database can be loaded into another.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(settings, args[0])
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only, store nothing")

	return cmd
}

func runImport(settings *conf.Settings, path string) error {
	// Assembled before the file is read so the validation and file metrics
	// cover the whole run.
	dbMetrics, err := monitoringMetrics(settings)
	if err != nil {
		return err
	}

	events, err := schema.ReadEventsFile(path)
	if err != nil {
		return err
	}

	models := make([]*datastore.ThermalEvent, 0, len(events))
	instanceCount := 0
	for _, event := range events {
		model, err := event.ToModel()
		if err != nil {
			return err
		}
		// Identities from the source database would collide in the target.
		model.ID = 0
		for i := range model.Instances {
			model.Instances[i].ID = 0
			model.Instances[i].ThermalEventID = 0
		}
		instanceCount += len(model.Instances)
		models = append(models, model)
	}

	if dryRun {
		fmt.Printf("Validated %d thermal event(s) with %d instance(s), nothing stored\n",
			len(models), instanceCount)
		return nil
	}

	store := datastore.New(settings, dbMetrics)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveThermalEvents(context.Background(), models...); err != nil {
		return err
	}

	fmt.Printf("Imported %d thermal event(s) with %d instance(s) from %s\n",
		len(models), instanceCount, path)
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
