package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"genesis/config"
	"genesis/internal/adapter/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded apply runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	dbPath := config.LedgerPath(GetRootDir())
	out := cmd.OutOrStdout()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %-9s  %3d written  %3d removed  config %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			len(r.Written), len(r.Removed), r.ConfigHash)
	}
	return nil
}
