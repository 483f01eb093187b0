package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/metamap/cmd/metamap/commands"
	"github.com/teranos/metamap/logger"
)

var rootCmd = &cobra.Command{
	Use:   "metamap",
	Short: "metamap - semantic annotation of tabular and spatial data",
	Long: `metamap - semantic annotation of tabular and spatial data.

metamap matches unlabeled columns against curated concepts using
statistical rule models, and infers what a spatial table represents
from its geometry alone.

Available commands:
  am       - Manage metamap configuration ("I am")
  db       - Manage the concept database
  concept  - Create, bind and curate concepts
  suggest  - Suggest a concept for one column
  annotate - Suggest concepts for every column of a table
  classify - Infer the dataset type of a spatial table

Examples:
  metamap am show                           # Show current configuration
  metamap concept generate roads speed -n speed_limit --verified
  metamap suggest roads maxspeed            # Match a column against concepts
  metamap annotate roads --autogenerate     # Annotate a whole table
  metamap classify parcels                  # Classify a spatial table`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep config output clean
		if cmd.Name() == "show" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ConceptCmd)
	rootCmd.AddCommand(commands.SuggestCmd)
	rootCmd.AddCommand(commands.AnnotateCmd)
	rootCmd.AddCommand(commands.ClassifyCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
