package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"genesis/internal/adapter/fs"
	"genesis/internal/domain"
	"genesis/internal/usecase"
)

var (
	planJSON    bool
	planSamples int
)

var planCmd = &cobra.Command{
	Use:   "plan [files...]",
	Short: "Preview the decomposition without writing",
	Long: `Run the whole pipeline and report what apply would write: target
files, static helper groups, module headers and diagnostics. Nothing is
written. Files may be paths or globs relative to the root directory; with
none, the configured source set is used.

Examples:
  genesis plan
  genesis plan ast_consolidated.c --json`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planJSON, "json", false, "output as JSON")
	planCmd.Flags().IntVar(&planSamples, "samples", 10, "number of sample mappings to show")
}

func runPlan(cmd *cobra.Command, args []string) error {
	planUC := usecase.NewPlanUseCase(GetConfig(), fs.NewTree(GetRootDir()), GetLogger())

	plan, err := planUC.Plan(cmd.Context(), args)
	if err != nil {
		return err
	}

	if planJSON {
		output, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return nil
	}
	printPlan(cmd.OutOrStdout(), plan, planSamples)
	return nil
}

// printPlan writes the dry-run report.
func printPlan(w io.Writer, plan *domain.Plan, samples int) {
	statics := 0
	for _, u := range plan.Units {
		if u.Static {
			statics++
		}
	}

	fmt.Fprintf(w, "Plan for %s:\n", plan.Root)
	fmt.Fprintf(w, "  Sources:         %d\n", len(plan.Sources))
	fmt.Fprintf(w, "  Functions:       %d (%d static)\n", len(plan.Units), statics)
	fmt.Fprintf(w, "  Files to write:  %d\n", len(plan.Files))
	fmt.Fprintf(w, "  Module headers:  %d\n", len(plan.Headers))
	fmt.Fprintf(w, "  Build list:      %s\n", plan.BuildList.Path)

	dirs := plan.Dirs()
	fmt.Fprintf(w, "\nDirectories (%d):\n", len(dirs))
	for _, d := range dirs {
		fmt.Fprintf(w, "  %s/\n", d)
	}

	files := append([]domain.OutputFile(nil), plan.Files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Primary < files[j].Primary })
	if samples > len(files) {
		samples = len(files)
	}
	if samples > 0 {
		fmt.Fprintf(w, "\nSample mappings:\n")
		for _, f := range files[:samples] {
			fmt.Fprintf(w, "  %-32s -> %s\n", f.Primary, f.Path)
		}
		if rest := len(files) - samples; rest > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", rest)
		}
	}

	if len(plan.Groups) > 0 {
		fmt.Fprintf(w, "\nStatic helper groups:\n")
		for _, g := range plan.Groups {
			fmt.Fprintf(w, "  %s (%s): %v\n", g.Host, g.Tier, g.Helpers)
		}
	}

	if len(plan.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics:\n")
		for _, d := range plan.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", formatDiagnostic(d))
		}
	}
}

func formatDiagnostic(d domain.Diagnostic) string {
	if d.Fatal {
		return "error " + d.String()
	}
	return "warning " + d.String()
}
