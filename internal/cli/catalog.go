package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"genesis/internal/adapter/fs"
	"genesis/internal/usecase"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the symbol catalog built from the include directory",
	Long: `Read every header under the include directory and print the functions
and types the catalog resolves, with the header that declares each one.
Symbols declared by more than one header are reported.`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "output as JSON")
}

type catalogEntry struct {
	Name   string `json:"name"`
	Header string `json:"header"`
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := usecase.NewPlanUseCase(GetConfig(), fs.NewTree(GetRootDir()), GetLogger()).Catalog(cmd.Context())
	if err != nil {
		return err
	}

	entries := func(names []string) []catalogEntry {
		out := make([]catalogEntry, len(names))
		for i, n := range names {
			out[i] = catalogEntry{Name: n, Header: cat.HeaderOf(n)}
		}
		return out
	}
	functions := entries(cat.FunctionNames())
	types := entries(cat.TypeNames())

	out := cmd.OutOrStdout()
	if catalogJSON {
		output, err := json.MarshalIndent(map[string]any{
			"headers":    cat.Headers(),
			"functions":  functions,
			"types":      types,
			"duplicates": cat.Duplicates(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Catalog: %d headers, %d functions, %d types\n",
		len(cat.Headers()), len(functions), len(types))
	if len(functions) > 0 {
		fmt.Fprintf(out, "\nFunctions:\n")
		for _, e := range functions {
			fmt.Fprintf(out, "  %-32s %s\n", e.Name, e.Header)
		}
	}
	if len(types) > 0 {
		fmt.Fprintf(out, "\nTypes:\n")
		for _, e := range types {
			fmt.Fprintf(out, "  %-32s %s\n", e.Name, e.Header)
		}
	}
	if diags := cat.Diagnostics(); len(diags) > 0 {
		fmt.Fprintf(out, "\nDiagnostics:\n")
		for _, d := range diags {
			fmt.Fprintf(out, "  - %s\n", formatDiagnostic(d))
		}
	}
	return nil
}
