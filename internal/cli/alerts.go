package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect recorded alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, newest first",
	RunE:  runAlertsList,
}

var alertsReadCmd = &cobra.Command{
	Use:   "read <alert-id>",
	Short: "Mark an alert as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsRead,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsReadCmd)

	alertsListCmd.Flags().Bool("unread", false, "Only show unread alerts")
	alertsListCmd.Flags().String("rule", "", "Filter by rule ID")
	alertsListCmd.Flags().IntP("limit", "l", 20, "Maximum number of alerts (0 for all)")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	unread, _ := cmd.Flags().GetBool("unread")
	ruleID, _ := cmd.Flags().GetString("rule")
	limit, _ := cmd.Flags().GetInt("limit")

	alerts, err := a.store.GetAlerts(cmd.Context(), a.user, model.AlertFilter{
		RuleID:     ruleID,
		UnreadOnly: unread,
		Limit:      limit,
	})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(alerts) == 0 {
		fmt.Fprintln(out, "No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSEVERITY\tTITLE\tBODY\tREAD\tCREATED\n")
	for _, alert := range alerts {
		read := ""
		if alert.Read {
			read = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.ID, severityBadge(alert.Severity), alert.Title, alert.Body, read,
			alert.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	return nil
}

func runAlertsRead(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.store.MarkAlertRead(cmd.Context(), a.user, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("alert %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Alert %s marked as read.\n", args[0])
	return nil
}
