package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/planfile"
	"github.com/quarrylabs/quarry/pkg/lower"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <plan-file>",
		Short: "Show the lowered subquery structure of a plan",
		Long: `Lower a dataflow plan without rendering and list every subquery the
compiled statement will contain, innermost first, with its alias and the
logical operation it performs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0])
		},
	}
}

func runExplain(cmd *cobra.Command, planPath string) error {
	root, err := planfile.Load(planPath)
	if err != nil {
		return err
	}
	ir, err := lower.Lower(root)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ALIAS", "OPERATION"})
	for _, info := range sqlir.Subqueries(ir) {
		alias := info.Alias
		if alias == "" {
			alias = "(result)"
		}
		t.AppendRow(table.Row{alias, info.Description})
	}
	t.Render()
	return nil
}
