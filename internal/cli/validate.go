package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"genesis/config"
	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/store"
	"genesis/internal/domain"
	"genesis/internal/usecase"
)

var (
	validateRun  string
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-check the generated tree against a recorded run",
	Long: `Re-extract every file a run wrote and compare the function count and
names with the snapshot taken before the write. Exits with status 1 when
any function is missing or extra.

Examples:
  genesis validate
  genesis validate --run 3f1c... --json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateRun, "run", "", "run ID (default is the latest run)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	root := GetRootDir()

	dbPath := config.LedgerPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: no runs recorded. Run 'genesis apply' first", domain.ErrMissingInput)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer st.Close()

	validateUC, err := usecase.NewValidateUseCase(GetConfig(), fs.NewTree(root), st, GetLogger())
	if err != nil {
		return err
	}

	report, err := validateUC.Validate(cmd.Context(), validateRun)
	if report != nil {
		if validateJSON {
			output, jerr := json.MarshalIndent(report, "", "  ")
			if jerr != nil {
				return jerr
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
		} else {
			printReport(cmd.OutOrStdout(), report)
		}
	}
	return err
}

func printReport(w io.Writer, r *domain.ValidationReport) {
	status := "PASSED"
	if !r.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(w, "\nValidation %s:\n", status)
	fmt.Fprintf(w, "  Functions:       %d before, %d after\n", r.FunctionsBefore, r.FunctionsAfter)
	fmt.Fprintf(w, "  Lines:           %d before, %d after (%+.1f%%)\n", r.LinesBefore, r.LinesAfter, r.LineDelta*100)
	fmt.Fprintf(w, "  Files checked:   %d\n", r.FilesChecked)
	fmt.Fprintf(w, "  Largest file:    %d bytes\n", r.MaxFileSize)
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "  Missing:         %v\n", r.Missing)
	}
	if len(r.Extra) > 0 {
		fmt.Fprintf(w, "  Extra:           %v\n", r.Extra)
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "  - %s\n", formatDiagnostic(d))
	}
}
