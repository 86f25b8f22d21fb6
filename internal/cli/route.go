package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/mapper"
	"genesis/internal/usecase"
)

var routeJSON bool

var routeCmd = &cobra.Command{
	Use:   "route NAME...",
	Short: "Show where function names would be written",
	Long: `Evaluate the mapping rules for each name, top to bottom, and print the
target file. Rules that can never match because an earlier rule covers them
are listed as well.

Examples:
  genesis route ast_parse_if xmd_log_error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "output as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	m, err := usecase.NewPlanUseCase(GetConfig(), fs.NewTree(GetRootDir()), GetLogger()).Mapper()
	if err != nil {
		return err
	}

	routes := make([]mapper.Route, len(args))
	for i, name := range args {
		routes[i] = m.Route(name)
	}
	shadowed := m.Shadowed()

	out := cmd.OutOrStdout()
	if routeJSON {
		output, err := json.MarshalIndent(struct {
			Routes   []mapper.Route  `json:"routes"`
			Shadowed []mapper.Shadow `json:"shadowed,omitempty"`
		}{routes, shadowed}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	rules := m.Rules()
	for _, r := range routes {
		via := "default"
		if r.Rule >= 0 {
			via = fmt.Sprintf("rule %d %q", r.Rule, rules[r.Rule].Pattern)
		}
		fmt.Fprintf(out, "%-32s -> %s (%s)\n", r.Name, r.Path, via)
	}
	if len(shadowed) > 0 {
		fmt.Fprintf(out, "\nUnreachable rules:\n")
		for _, s := range shadowed {
			fmt.Fprintf(out, "  rule %d %q is covered by rule %d %q\n", s.Rule, s.Pattern, s.ShadowBy, s.ByPat)
		}
	}
	return nil
}
