package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quarrylabs/quarry"
	"github.com/quarrylabs/quarry/internal/planfile"
	"github.com/quarrylabs/quarry/pkg/dialect"
)

// CompileOutput is the JSON shape of one compiled statement.
type CompileOutput struct {
	Plan    string `json:"plan"`
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "compile <plan-file>",
		Short: "Compile a dataflow plan to SQL",
		Long: `Compile a YAML dataflow plan into a single SQL statement for the target
dialect. The output is annotated per nested subquery and is byte-stable
across repeated compilations of the same plan.`,
		Example: `  # Compile for the configured dialect
  quarry compile bookings.yaml

  # Compile for a specific dialect
  quarry compile bookings.yaml --dialect postgres

  # Compile for every registered dialect
  quarry compile bookings.yaml --all

  # Emit JSON
  quarry compile bookings.yaml --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Compile for every registered dialect")
	return cmd
}

func runCompile(cmd *cobra.Command, planPath string, all bool) error {
	cfg := configFrom(cmd)
	log := loggerFrom(cmd)

	root, err := planfile.Load(planPath)
	if err != nil {
		return err
	}
	log.Debug("plan loaded", "path", planPath, "root", root.ID())

	names := []string{cfg.Dialect}
	if all {
		names = dialect.List()
	}

	// Compilations share no state, so fan out freely.
	results := make([]CompileOutput, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			profile, ok := dialect.Get(name)
			if !ok {
				return fmt.Errorf("unknown dialect %q (registered: %v)", name, dialect.List())
			}
			sqlText, err := quarry.Compile(root, profile)
			if err != nil {
				return fmt.Errorf("compile for %s: %w", name, err)
			}
			results[i] = CompileOutput{Plan: planPath, Dialect: name, SQL: sqlText}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cfg.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if !all {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for i, res := range results {
		if all {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "-- dialect: %s\n", res.Dialect)
		}
		fmt.Fprint(cmd.OutOrStdout(), res.SQL)
	}
	return nil
}
