package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run an evaluation pass and print the alerts it creates",
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().Bool("all", false, "Evaluate every known user")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	all, _ := cmd.Flags().GetBool("all")
	out := cmd.OutOrStdout()

	if !all {
		created, err := a.engine.EvaluateAllRules(cmd.Context(), a.user)
		printAlerts(out, created)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", a.user, err)
		}
		return nil
	}

	users, err := a.store.ListUserIDs(cmd.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	results, err := a.engine.EvaluateUsers(cmd.Context(), users)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "== %s ==\n", name)
		printAlerts(out, results[name])
	}
	if err != nil {
		return fmt.Errorf("evaluate users: %w", err)
	}
	return nil
}

// printAlerts writes alerts as a table, or a notice when there are none.
func printAlerts(out io.Writer, alerts []model.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(out, "No new alerts.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSEVERITY\tTITLE\tBODY\tCREATED\n")
	for _, alert := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			alert.ID, severityBadge(alert.Severity), alert.Title, alert.Body,
			alert.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
}
