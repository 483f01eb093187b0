package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/display"
	"github.com/teranos/metamap/errors"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the concept database",
	Long: `db - Manage the concept database

Examples:
  metamap db migrate              # Apply pending migrations
  metamap db stats                # Show concept and classification counts`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	display.Success("Database is up to date")
	return nil
}

// DatabaseStats are the row counts shown by db stats.
type DatabaseStats struct {
	Path             string `json:"path"`
	Concepts         int    `json:"concepts"`
	VerifiedConcepts int    `json:"verified_concepts"`
	Bindings         int    `json:"bindings"`
	Observations     int    `json:"observations"`
	DatasetTypes     int    `json:"dataset_types"`
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	stats, err := queryStats(database)
	if err != nil {
		return err
	}
	stats.Path = cfg.Database.Path

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(stats)
	}

	fmt.Printf("Database Statistics\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:      %s\n", stats.Path)
	fmt.Printf("Concepts:           %d (%d verified)\n", stats.Concepts, stats.VerifiedConcepts)
	fmt.Printf("Bound Columns:      %d\n", stats.Bindings)
	fmt.Printf("Observations:       %d\n", stats.Observations)
	fmt.Printf("Classified Tables:  %d\n", stats.DatasetTypes)
	return nil
}

func queryStats(database *sql.DB) (*DatabaseStats, error) {
	var s DatabaseStats
	err := database.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM concepts),
			(SELECT COUNT(*) FROM concepts WHERE verified = 1),
			(SELECT COUNT(*) FROM concept_bindings),
			(SELECT COUNT(*) FROM concept_observations),
			(SELECT COUNT(*) FROM dataset_types)
	`).Scan(&s.Concepts, &s.VerifiedConcepts, &s.Bindings, &s.Observations, &s.DatasetTypes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query database stats")
	}
	return &s, nil
}
