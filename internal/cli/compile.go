package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wodrun/internal/compiler"
	"github.com/roach88/wodrun/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Raw    bool   // skip the hint analyzers
}

// CompiledGroup is one statement group and the strategy that would build
// its block. Children follow the primary statement's child groups.
type CompiledGroup struct {
	IDs      []int           `json:"ids"`
	Strategy string          `json:"strategy"`
	Label    string          `json:"label,omitempty"`
	Hints    []string        `json:"hints,omitempty"`
	Children []CompiledGroup `json:"children,omitempty"`
}

// CompilationResult is the static compile plan of a script.
type CompilationResult struct {
	Name          string          `json:"name"`
	EngineVersion string          `json:"engine_version"`
	IRVersion     string          `json:"ir_version"`
	Groups        []CompiledGroup `json:"groups"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <script>",
		Short: "Show the block plan for a statement script",
		Long: `Validate a statement script and show which strategy compiles each
statement group, without running anything.

Blocks are compiled lazily at run time; this prints the plan the JIT
would follow if every group were reached.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "skip keyword analysis")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadScript(path, opts.Raw)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	if errs := compiler.Validate(loaded.Script); len(errs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Name:       loaded.Name,
			Statements: loaded.Script.Len(),
			Errors:     errs,
		})
	}

	result, err := Plan(loaded.Name, loaded.Script, compiler.New())
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "compile failed", err)
	}
	formatter.VerboseLog("Planned %d top-level group(s) for %s", len(result.Groups), path)

	if opts.Output != "" {
		if err := writePlanToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// Plan walks the script the way the runtime would, matching a strategy for
// every group from the roots down.
func Plan(name string, script *ir.Script, jit *compiler.JIT) (*CompilationResult, error) {
	groups, err := planGroups(script, jit, script.Roots(), map[int]bool{})
	if err != nil {
		return nil, err
	}
	return &CompilationResult{
		Name:          name,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Groups:        groups,
	}, nil
}

func planGroups(script *ir.Script, jit *compiler.JIT, ids []int, path map[int]bool) ([]CompiledGroup, error) {
	var out []CompiledGroup
	for _, groupIDs := range compiler.GroupChildren(script, ids) {
		statements, err := script.Resolve(groupIDs)
		if err != nil {
			return nil, err
		}
		strategy := jit.Match(statements)
		if strategy == nil {
			return nil, fmt.Errorf("no strategy for statements %v", groupIDs)
		}

		group := CompiledGroup{IDs: groupIDs, Strategy: strategy.Name()}
		var labels []string
		for _, st := range statements {
			if l := st.Label(); l != "" {
				labels = append(labels, l)
			}
			group.Hints = append(group.Hints, st.Hints...)
		}
		group.Label = strings.Join(labels, " + ")

		head := statements[0]
		if path[head.ID] {
			return nil, fmt.Errorf("statement %d contains itself", head.ID)
		}
		path[head.ID] = true
		group.Children, err = planGroups(script, jit, head.Children, path)
		delete(path, head.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, nil
}

// PlanLines renders groups as an indented outline.
func PlanLines(groups []CompiledGroup) []string {
	var lines []string
	var walk func([]CompiledGroup, int)
	walk = func(gs []CompiledGroup, depth int) {
		for _, g := range gs {
			line := fmt.Sprintf("%s%v %s", strings.Repeat("  ", depth), g.IDs, g.Strategy)
			if g.Label != "" {
				line += " " + g.Label
			}
			lines = append(lines, line)
			walk(g.Children, depth+1)
		}
	}
	walk(groups, 0)
	return lines
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s (engine %s, ir %s)\n\n",
		result.Name, result.EngineVersion, result.IRVersion)
	for _, line := range PlanLines(result.Groups) {
		fmt.Fprintf(formatter.Writer, "  %s\n", line)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote plan to %s\n", outputFile)
	}

	return nil
}

// writePlanToFile writes the compile plan as indented JSON.
func writePlanToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
