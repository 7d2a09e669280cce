// Package createdb provides the createdb command for the thermal event store
package createdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/datastore"
)

var seedFile string

// Command creates and returns the createdb command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createdb",
		Short: "Create the database tables and seed the lookup rows",
		Long: `Createdb connects to the configured backend, creates or migrates all tables
and inserts the canonical lookup rows. An optional JSON seed file adds
site-specific devices, methods, severity types, users, lines of sight,
categories and their compatibility pairs; rows that already exist are left
untouched, so the command is safe to repeat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateDB(settings)
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed-file", "", "JSON file with site-specific lookup rows")

	return cmd
}

func runCreateDB(settings *conf.Settings) error {
	// Parse the seed file before dialing the backend so a bad file fails fast.
	var seeds []datastore.LookupSeed
	if seedFile != "" {
		data, err := os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		var seed datastore.LookupSeed
		if err := json.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("failed to parse seed file %s: %w", seedFile, err)
		}
		seeds = append(seeds, seed)
	}

	// Open migrates the schema to the current model definitions.
	store := datastore.New(settings, nil)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SeedLookups(context.Background(), seeds...); err != nil {
		return err
	}

	fmt.Println("Database created and lookup tables seeded")
	return nil
}
