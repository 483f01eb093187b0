package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/metamap/annotate"
	"github.com/teranos/metamap/display"
	"github.com/teranos/metamap/errors"
)

// ConceptCmd represents the concept command
var ConceptCmd = &cobra.Command{
	Use:   "concept",
	Short: "Create, bind and curate concepts",
	Long: `concept - Create, bind and curate concepts

A concept is a reusable semantic label for columns. Binding a column
copies its values into the concept's observations and retrains the
rule model of the concept's type.

Examples:
  metamap concept ls                                  # List concepts
  metamap concept generate roads speed -n speed_limit # Create and bind
  metamap concept bind http://example.com/speed_limit lanes maxspeed
  metamap concept verify http://example.com/speed_limit
  metamap concept narrower http://example.com/speed http://example.com/speed_limit
  metamap concept kind http://example.com/speed_limit # IntervalA, BooleanA, NominalA
  metamap concept bindings roads                      # Bound columns of a table`,
}

var conceptLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List concepts",
	RunE:    runConceptLs,
}

var conceptGenerateCmd = &cobra.Command{
	Use:   "generate <table> <column>",
	Short: "Create a concept from a column and bind the column to it",
	Args:  cobra.ExactArgs(2),
	RunE:  runConceptGenerate,
}

var conceptBindCmd = &cobra.Command{
	Use:   "bind <uri> <table> <column>",
	Short: "Bind a column to an existing concept",
	Args:  cobra.ExactArgs(3),
	RunE:  runConceptBind,
}

var conceptVerifyCmd = &cobra.Command{
	Use:   "verify <uri>",
	Short: "Mark a concept as verified by a curator",
	Args:  cobra.ExactArgs(1),
	RunE:  runConceptVerify,
}

var conceptNarrowerCmd = &cobra.Command{
	Use:   "narrower <uri> [narrower-uri]",
	Short: "Point a concept at a more specific one (omit to clear)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConceptNarrower,
}

var conceptRmCmd = &cobra.Command{
	Use:   "rm <uri>",
	Short: "Delete a concept with its bindings and observations",
	Args:  cobra.ExactArgs(1),
	RunE:  runConceptRm,
}

var conceptKindCmd = &cobra.Command{
	Use:   "kind <uri>",
	Short: "Infer the attribute kind of a concept",
	Args:  cobra.ExactArgs(1),
	RunE:  runConceptKind,
}

var conceptBindingsCmd = &cobra.Command{
	Use:   "bindings <table>",
	Short: "List the bound columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runConceptBindings,
}

var (
	conceptNameFlag     string
	conceptVerifiedFlag bool
	conceptUnsetFlag    bool
)

func init() {
	conceptGenerateCmd.Flags().StringVarP(&conceptNameFlag, "name", "n", "", "Concept name (default: the column name)")
	conceptGenerateCmd.Flags().BoolVar(&conceptVerifiedFlag, "verified", false, "Mark the concept as verified")
	conceptVerifyCmd.Flags().BoolVar(&conceptUnsetFlag, "unset", false, "Clear the verified flag instead")

	ConceptCmd.AddCommand(conceptLsCmd)
	ConceptCmd.AddCommand(conceptGenerateCmd)
	ConceptCmd.AddCommand(conceptBindCmd)
	ConceptCmd.AddCommand(conceptVerifyCmd)
	ConceptCmd.AddCommand(conceptNarrowerCmd)
	ConceptCmd.AddCommand(conceptRmCmd)
	ConceptCmd.AddCommand(conceptKindCmd)
	ConceptCmd.AddCommand(conceptBindingsCmd)
}

func runConceptLs(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	concepts, err := e.concepts.ListConcepts(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "failed to list concepts")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(concepts)
	}
	if len(concepts) == 0 {
		display.Info("No concepts yet")
		return nil
	}

	rows := make([][]string, 0, len(concepts))
	for _, c := range concepts {
		verified := ""
		if c.Verified {
			verified = "✓"
		}
		rows = append(rows, []string{c.URI, c.Name, string(c.DataType), verified, c.Narrower})
	}
	return display.Table([]string{"URI", "Name", "Type", "Verified", "Narrower"}, rows)
}

func runConceptGenerate(cmd *cobra.Command, args []string) error {
	table, column := args[0], args[1]
	name := conceptNameFlag
	if name == "" {
		name = column
	}

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	uri, err := e.annotator.GenerateConcept(cmd.Context(), table, column, name, conceptVerifiedFlag)
	if err != nil {
		return errors.Wrapf(err, "failed to generate concept for %s.%s", table, column)
	}

	display.Success("%s.%s → %s", table, column, uri)
	return nil
}

func runConceptBind(cmd *cobra.Command, args []string) error {
	uri, table, column := args[0], args[1], args[2]

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	c, err := e.concepts.GetConcept(cmd.Context(), uri)
	if err != nil {
		return err
	}
	if err := e.annotator.BindColumnToConcept(cmd.Context(), uri, c.DataType, table, column); err != nil {
		return errors.Wrapf(err, "failed to bind %s.%s", table, column)
	}

	display.Success("%s.%s → %s", table, column, uri)
	return nil
}

func runConceptVerify(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.annotator.SetVerified(cmd.Context(), args[0], !conceptUnsetFlag); err != nil {
		return err
	}

	if conceptUnsetFlag {
		display.Success("Unverified %s", args[0])
	} else {
		display.Success("Verified %s", args[0])
	}
	return nil
}

func runConceptNarrower(cmd *cobra.Command, args []string) error {
	narrower := ""
	if len(args) == 2 {
		narrower = args[1]
	}

	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.annotator.SetNarrower(cmd.Context(), args[0], narrower); err != nil {
		return err
	}

	if narrower == "" {
		display.Success("%s is a root concept", args[0])
	} else {
		display.Success("%s → %s", args[0], narrower)
	}
	return nil
}

func runConceptRm(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.annotator.DeleteConcept(cmd.Context(), args[0]); err != nil {
		return err
	}

	display.Success("Deleted %s", args[0])
	return nil
}

func runConceptKind(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	kind, err := e.annotator.InferAttributeKind(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]string{"uri": args[0], "kind": string(kind)})
	}
	if kind == annotate.KindNone {
		fmt.Println("(none: defer to the base type)")
		return nil
	}
	fmt.Println(kind)
	return nil
}

func runConceptBindings(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	bindings, err := e.annotator.ColumnBindings(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(bindings)
	}

	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		rows = append(rows, []string{strings.Join([]string{b.Table, b.Column}, "."), b.URI})
	}
	return display.Table([]string{"Column", "Concept"}, rows)
}
