package cli

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show balance, unread alerts and spending by category for a period",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringP("period", "P", "monthly", "Spending period (daily, weekly, monthly)")
}

func runSummary(cmd *cobra.Command, _ []string) error {
	periodFlag, _ := cmd.Flags().GetString("period")
	period := model.Period(periodFlag)
	if !period.Valid() {
		return fmt.Errorf("unknown period %q: want daily, weekly or monthly", periodFlag)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "=== Financial Summary (%s) ===\n", a.user)

	account, err := a.store.GetAccount(ctx, a.user)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintln(out, "Account:         none (use 'falarm init')")
	case err != nil:
		return fmt.Errorf("get account: %w", err)
	default:
		fmt.Fprintf(out, "Account:         %s\n", account.Name)
		fmt.Fprintf(out, "Balance:         %s %.2f\n", account.Currency, account.CurrentBalance)
		fmt.Fprintf(out, "Available:       %s %.2f\n", account.Currency, account.AvailableBalance)
	}

	unread, err := a.store.GetAlerts(ctx, a.user, model.AlertFilter{UnreadOnly: true})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	fmt.Fprintf(out, "Unread alerts:   %d\n", len(unread))

	start, _ := model.PeriodBounds(period, time.Now().UTC())
	spending, err := a.store.CategorySpending(ctx, a.user, start)
	if err != nil {
		return fmt.Errorf("aggregate spending: %w", err)
	}
	fmt.Fprintf(out, "Spent (%s):   %.2f since %s\n", period, spending.Total, start.Format("2006-01-02"))

	if len(spending.ByCategory) > 0 {
		categories := make([]string, 0, len(spending.ByCategory))
		for c := range spending.ByCategory {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool {
			return spending.ByCategory[categories[i]] > spending.ByCategory[categories[j]]
		})

		fmt.Fprintf(out, "\nBy Category:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  CATEGORY\tSPENT\n")
		for _, c := range categories {
			fmt.Fprintf(w, "  %s\t%.2f\n", c, spending.ByCategory[c])
		}
		w.Flush()
	}

	return nil
}
