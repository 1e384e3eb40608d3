package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/pkg/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialect profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"DIALECT", "QUOTE", "COUNT DISTINCT"})
			for _, name := range dialect.List() {
				p, _ := dialect.Get(name)
				countDistinct := "yes"
				if !p.SupportsCountDistinct {
					countDistinct = "no"
				}
				t.AppendRow(table.Row{p.Name, p.QuoteChar, countDistinct})
			}
			t.Render()
			return nil
		},
	}
}
