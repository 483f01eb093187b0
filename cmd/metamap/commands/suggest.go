package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/teranos/metamap/display"
	"github.com/teranos/metamap/errors"
)

// SuggestCmd suggests a concept for one column
var SuggestCmd = &cobra.Command{
	Use:   "suggest <table> <column>",
	Short: "Suggest a concept for one column",
	Long: `suggest - Match one column against the concept rule models

Bound columns return their concept. Otherwise the best candidate of the
column's rule model wins; with --autogenerate a new concept is minted
when nothing matches.

Examples:
  metamap suggest roads maxspeed
  metamap suggest roads maxspeed --compare-headers=false
  metamap suggest roads surface --autogenerate`,
	Args: cobra.ExactArgs(2),
	RunE: runSuggest,
}

// AnnotateCmd suggests concepts for every column of a table
var AnnotateCmd = &cobra.Command{
	Use:   "annotate <table>",
	Short: "Suggest concepts for every column of a table",
	Long: `annotate - Run suggest over every column of a table

The geometry column (spatial.geometry_column) is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	for _, c := range []*cobra.Command{SuggestCmd, AnnotateCmd} {
		c.Flags().Bool("compare-headers", true, "Keep only candidates whose header names match the column (default: annotate.compare_headers)")
		c.Flags().Bool("autogenerate", false, "Mint a new concept when nothing matches (default: annotate.autogenerate)")
	}
}

// matchFlags resolves the matcher flags against am config
func matchFlags(cmd *cobra.Command, compareDefault, autogenerateDefault bool) (bool, bool) {
	compare, autogenerate := compareDefault, autogenerateDefault
	if cmd.Flags().Changed("compare-headers") {
		compare, _ = cmd.Flags().GetBool("compare-headers")
	}
	if cmd.Flags().Changed("autogenerate") {
		autogenerate, _ = cmd.Flags().GetBool("autogenerate")
	}
	return compare, autogenerate
}

func runSuggest(cmd *cobra.Command, args []string) error {
	table, column := args[0], args[1]

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	compare, autogenerate := matchFlags(cmd, e.cfg.Annotate.CompareHeaders, e.cfg.Annotate.Autogenerate)
	uri, err := e.annotator.SuggestConcept(cmd.Context(), table, column, compare, autogenerate)
	if err != nil {
		return errors.Wrapf(err, "failed to suggest a concept for %s.%s", table, column)
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]string{"table": table, "column": column, "uri": uri})
	}
	if uri == "" {
		display.Warning("No concept matches %s.%s", table, column)
		return nil
	}
	fmt.Println(uri)
	return nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	table := args[0]

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	compare, autogenerate := matchFlags(cmd, e.cfg.Annotate.CompareHeaders, e.cfg.Annotate.Autogenerate)
	result, err := e.annotator.AnnotateTable(cmd.Context(), table, compare, autogenerate, e.cfg.Spatial.GeometryColumn)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(result)
	}
	if len(result) == 0 {
		display.Warning("No column of %s matches a concept", table)
		return nil
	}

	columns := make([]string, 0, len(result))
	for c := range result {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(columns))
	for _, c := range columns {
		rows = append(rows, []string{c, result[c]})
	}
	return display.Table([]string{"Column", "Concept"}, rows)
}
