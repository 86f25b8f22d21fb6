package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"genesis/config"
	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/store"
	"genesis/internal/domain"
	"genesis/internal/usecase"
)

var (
	applyYes             bool
	applyRemoveOriginals bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [files...]",
	Short: "Back up, write the decomposed tree and validate it",
	Long: `Plan the decomposition, back up every input, write the generated tree,
then validate it against the snapshot taken before writing. The run is
recorded in .genesis/runs.db and the report in .genesis/report.json.

You must type PROCEED before anything is written. With --remove-originals
the consolidated inputs are deleted after validation passes, which needs a
second confirmation (YES).

Examples:
  genesis apply
  genesis apply ast_consolidated.c --remove-originals
  genesis apply --yes`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "answer every confirmation")
	applyCmd.Flags().BoolVar(&applyRemoveOriginals, "remove-originals", false, "delete consolidated inputs after validation passes")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()
	log := GetLogger()
	out := cmd.OutOrStdout()

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMissingInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", domain.ErrMissingInput, root)
	}

	tree := fs.NewTree(root)
	plan, err := usecase.NewPlanUseCase(cfg, tree, log).Plan(cmd.Context(), args)
	if err != nil {
		return err
	}
	printPlan(out, plan, 0)

	if err := config.EnsureStateDir(root); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.StateDirName, err)
	}
	st, err := store.NewBoltStore(config.LedgerPath(root))
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer st.Close()

	migration, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsMigration {
		log.Info("migrating run ledger", "reason", migration.Reason)
		if err := st.Migrate(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else if migration.ConfigChanged {
		fmt.Fprintf(out, "\nNote: %s\n", migration.Reason)
	}

	applyUC, err := usecase.NewApplyUseCase(cfg, tree, st, log)
	if err != nil {
		return err
	}

	opts := usecase.ApplyOptions{
		RemoveOriginals: applyRemoveOriginals,
		Confirm:         confirmer(cmd.InOrStdin(), out, applyYes),
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		opts.Progress = progress(out)
	}

	result, err := applyUC.Apply(cmd.Context(), plan, opts)
	if result != nil {
		printApply(out, result)
	}
	if err != nil {
		return err
	}

	// Record the config the tree was written with.
	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}
	return nil
}

// confirmer prompts on out and reads one line from in. With yes set every
// prompt is answered without reading.
func confirmer(in io.Reader, out io.Writer, yes bool) usecase.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(prompt, token string) (bool, error) {
		fmt.Fprintf(out, "\n%s\n", prompt)
		if yes {
			return true, nil
		}
		fmt.Fprintf(out, "Type %s to continue: ", token)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		return strings.TrimSpace(line) == token, nil
	}
}

func progress(out io.Writer) usecase.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Writing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(out)
				}),
			)
		}

		bar.Set(processed)

		elapsed := time.Since(startTime)
		rate := float64(processed) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-processed)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Writing[reset] %s ETA: %s", path.Base(currentFile), formatDuration(eta)))
		}
	}
}

func printApply(w io.Writer, result *usecase.ApplyResult) {
	fmt.Fprintf(w, "\nApply complete:\n")
	fmt.Fprintf(w, "  Run:             %s\n", result.RunID)
	fmt.Fprintf(w, "  Backup:          %s\n", result.BackupDir)
	fmt.Fprintf(w, "  Files written:   %d\n", len(result.Written))
	if len(result.Removed) > 0 {
		fmt.Fprintf(w, "  Files removed:   %d\n", len(result.Removed))
	}
	if result.Report != nil {
		printReport(w, result.Report)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
