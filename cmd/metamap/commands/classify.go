package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/metamap/dataset"
	"github.com/teranos/metamap/display"
	"github.com/teranos/metamap/errors"
)

// ClassifyCmd infers the dataset type of spatial tables
var ClassifyCmd = &cobra.Command{
	Use:   "classify <table>",
	Short: "Infer the dataset type of a spatial table",
	Long: `classify - Infer geometry shape and dataset role of a spatial table

Results are memoized per table; use --invalidate to re-evaluate.
Event, track and network roles are only guessed with --guess or
dataset.permit_guessing.

Examples:
  metamap classify parcels
  metamap classify gps_fixes --guess
  metamap classify parcels --invalidate
  metamap classify ls`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var classifyLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List memoized classifications",
	Args:    cobra.NoArgs,
	RunE:    runClassifyLs,
}

var (
	classifyInvalidateFlag bool
	classifyGuessFlag      bool
)

func init() {
	ClassifyCmd.Flags().BoolVar(&classifyInvalidateFlag, "invalidate", false, "Discard the memoized record before classifying")
	ClassifyCmd.Flags().BoolVar(&classifyGuessFlag, "guess", false, "Permit event, track and network guesses")

	ClassifyCmd.AddCommand(classifyLsCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	table := args[0]

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	classifier, err := e.classifier(classifyGuessFlag)
	if err != nil {
		return err
	}

	if classifyInvalidateFlag {
		if _, err := classifier.Invalidate(cmd.Context(), table); err != nil {
			return errors.Wrapf(err, "failed to invalidate %s", table)
		}
	}

	result, err := classifier.Classify(cmd.Context(), table)
	if err != nil {
		return errors.Wrapf(err, "failed to classify %s", table)
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(result)
	}
	return printClassifications([]dataset.Classification{result})
}

func runClassifyLs(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := dataset.NewSQLStore(database).List(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "failed to list classifications")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(records)
	}
	if len(records) == 0 {
		display.Info("No classified tables yet")
		return nil
	}
	return printClassifications(records)
}

func printClassifications(records []dataset.Classification) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Table, string(r.Shape), string(r.Role), r.Rule, r.ClassifiedAt.Format("2006-01-02 15:04:05")})
	}
	return display.Table([]string{"Table", "Shape", "Role", "Rule", "Classified"}, rows)
}
