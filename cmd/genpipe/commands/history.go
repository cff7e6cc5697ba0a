package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/history"
)

// HistoryCmd inspects recorded runs.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs",
	Long: `Inspect runs recorded in the history database (history.path).

Examples:
  genpipe history ls              # Most recent runs
  genpipe history ls -n 50
  genpipe history show 7f3a       # A run by id or unique id prefix`,
}

var historyLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryLs,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run with its artifacts and errors",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyLimit int
	historyJSON  bool
)

func init() {
	historyLsCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 = all)")
	HistoryCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Output as JSON")

	HistoryCmd.AddCommand(historyLsCmd)
	HistoryCmd.AddCommand(historyShowCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if !cfg.History.Enabled {
		return nil, errors.WithHint(
			errors.NewConfigurationError("run history is disabled"),
			"set history.enabled = true in genpipe.toml")
	}
	return history.OpenStore(cfg.History.Path, nil)
}

func runHistoryLs(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		if runs == nil {
			runs = []history.RunRecord{}
		}
		return writeJSON(cmd.OutOrStdout(), runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
		return nil
	}

	data := pterm.TableData{{"ID", "STARTED", "STATUS", "UNITS", "ARTIFACTS", "ERRORS", "DURATION"}}
	for _, run := range runs {
		data = append(data, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			colorStatus(run.Status),
			fmt.Sprint(run.Units),
			fmt.Sprint(run.Artifacts),
			fmt.Sprint(run.Errors),
			run.Duration.String(),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, run)
	}

	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Duration:   %s\n", run.Duration)
	fmt.Fprintf(out, "Status:     %s\n", colorStatus(run.Status))
	fmt.Fprintf(out, "Units:      %d (%d pairs completed, %d incomplete)\n", run.Units, run.Completed, run.Incomplete)
	if run.Fault != "" {
		fmt.Fprintf(out, "Fault:      %s\n", pterm.Red(run.Fault))
	}

	if len(run.ArtifactList) > 0 {
		fmt.Fprintf(out, "\nArtifacts (%d):\n", len(run.ArtifactList))
		for _, a := range run.ArtifactList {
			fmt.Fprintf(out, "  %s  %s/%s  %s\n", pterm.Gray(a.Target), a.Unit, a.Name, pterm.Gray(fmt.Sprintf("%dB", a.Size)))
		}
	}
	if len(run.ErrorList) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(run.ErrorList))
		for _, e := range run.ErrorList {
			where := e.Unit
			if e.Location != "" {
				where = e.Location
			}
			fmt.Fprintf(out, "  %s %s: %s\n", pterm.Red("✗"), where, e.Message)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func colorStatus(status string) string {
	switch status {
	case "succeeded":
		return pterm.Green(status)
	case "incomplete":
		return pterm.Yellow(status)
	default:
		return pterm.Red(status)
	}
}
