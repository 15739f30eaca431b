// Package commands holds the extra CLI commands registered on the
// PocketBase root command.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"

	"projets/formula"
	"projets/services"
)

// formulaOptions holds the flags shared by the formula subcommands.
type formulaOptions struct {
	Project string
	Format  string // "json" | "text"
	Mode    string
}

var validFormats = []string{"text", "json"}

// NewFormulaCommand creates the "formula" command group.
func NewFormulaCommand(app core.App) *cobra.Command {
	opts := &formulaOptions{}

	cmd := &cobra.Command{
		Use:   "formula",
		Short: "Evaluate and check quote formulas",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if _, err := formula.ParseValidationMode(opts.Mode); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Project, "project", "", "project record id")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Mode, "mode", formula.ValidateOnChange.String(), "validation mode (change|save)")

	cmd.AddCommand(newEvalCommand(app, opts))
	cmd.AddCommand(newCheckCommand(app, opts))

	return cmd
}

// evalResult is the JSON shape printed by "formula eval".
type evalResult struct {
	Expression string                   `json:"expression"`
	Value      *float64                 `json:"value,omitempty"`
	Validation formula.ValidationResult `json:"validation"`
}

func newEvalCommand(app core.App, opts *formulaOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a formula against a project",
		Long: `Evaluate a formula against the current values of a project.

The leading "=" is optional. Without --project the formula is evaluated
against an empty context, so only literal arithmetic succeeds.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engineFor(app, opts)
			if err != nil {
				return err
			}
			expr := strings.TrimPrefix(strings.TrimSpace(args[0]), "=")
			return runEval(cmd.OutOrStdout(), eng, expr, opts.Format)
		},
	}
}

func runEval(w io.Writer, eng *formula.Engine, expr, format string) error {
	res := evalResult{Expression: expr, Validation: eng.Validate(expr, "")}
	if res.Validation.IsValid {
		v, err := eng.Evaluate(expr)
		if err != nil {
			res.Validation = formula.ValidationResult{Error: err.Error()}
		} else {
			res.Value = &v
		}
	}

	if format == "json" {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else if res.Value != nil {
		fmt.Fprintf(w, "%s = %s\n", expr, formatFloat(*res.Value))
	} else {
		fmt.Fprintf(w, "✗ %s\n", res.Validation.Error)
	}

	if !res.Validation.IsValid {
		return fmt.Errorf("invalid formula: %s", res.Validation.Error)
	}
	return nil
}

func newCheckCommand(app core.App, opts *formulaOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "check",
		Short:        "Validate every formula of a project",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Project == "" {
				return fmt.Errorf("--project is required")
			}
			p, err := services.LoadProject(app, opts.Project)
			if err != nil {
				return err
			}
			eng := services.NewProjectEngine(p, formula.ValidateOnSave)
			report := eng.ValidateAll(services.FormulaFields(p))
			return runCheck(cmd.OutOrStdout(), p, report, opts.Format)
		},
	}
}

func runCheck(w io.Writer, p services.Project, report formula.SaveReport, format string) error {
	if format == "json" {
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		paths := make([]string, 0, len(report.Fields))
		for path := range report.Fields {
			paths = append(paths, path)
		}
		slices.Sort(paths)

		fmt.Fprintf(w, "%s: %d formula(s)\n", p.Name, len(paths))
		for _, path := range paths {
			res := report.Fields[path]
			if res.IsValid {
				fmt.Fprintf(w, "  ✓ %s\n", path)
			} else {
				fmt.Fprintf(w, "  ✗ %s: %s\n", path, res.Error)
			}
		}
		for _, cycle := range report.Cycles {
			fmt.Fprintf(w, "  cycle: %s\n", strings.Join(cycle, " -> "))
		}
		if report.IsValid {
			fmt.Fprintln(w, "✓ All formulas valid")
		}
	}

	if !report.IsValid {
		return fmt.Errorf("project %s has invalid formulas", p.ID)
	}
	return nil
}

// engineFor builds an engine over the selected project, or over an empty
// context when no project is given.
func engineFor(app core.App, opts *formulaOptions) (*formula.Engine, error) {
	mode, err := formula.ParseValidationMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	if opts.Project == "" {
		return formula.NewEngine(nil, mode), nil
	}
	p, err := services.LoadProject(app, opts.Project)
	if err != nil {
		return nil, err
	}
	return services.NewProjectEngine(p, mode), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
