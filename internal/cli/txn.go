package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var txnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Record and list transactions",
}

var txnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Ingest a transaction and evaluate rules",
	Long: `Ingest a transaction: it is categorized when no category is given,
stored, and followed by an evaluation pass. Negative amounts are outflows.`,
	RunE: runTxnAdd,
}

var txnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, oldest first",
	RunE:  runTxnList,
}

func init() {
	rootCmd.AddCommand(txnCmd)
	txnCmd.AddCommand(txnAddCmd, txnListCmd)

	txnAddCmd.Flags().StringP("amount", "a", "", "Amount, negative for outflows (e.g. -149.99)")
	txnAddCmd.Flags().StringP("merchant", "m", "", "Merchant name")
	txnAddCmd.Flags().StringP("description", "d", "", "Description")
	txnAddCmd.Flags().StringP("category", "c", "", "Category (default: categorized from merchant and description)")
	txnAddCmd.Flags().String("date", "", "Booking date as YYYY-MM-DD (default: now)")
	txnAddCmd.Flags().String("id", "", "Transaction ID; re-adding an existing ID is a no-op")
	_ = txnAddCmd.MarkFlagRequired("amount")
	_ = txnAddCmd.MarkFlagRequired("merchant")

	txnListCmd.Flags().String("since", "", "Only transactions booked on or after YYYY-MM-DD")
	txnListCmd.Flags().StringP("category", "c", "", "Filter by category")
	txnListCmd.Flags().StringP("merchant", "m", "", "Filter by merchant")
	txnListCmd.Flags().IntP("limit", "l", 0, "Maximum number of transactions (0 for all)")
}

// parseAmount reads a decimal amount, rejecting anything but a plain number.
func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(2).InexactFloat64(), nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func runTxnAdd(cmd *cobra.Command, _ []string) error {
	amountStr, _ := cmd.Flags().GetString("amount")
	merchant, _ := cmd.Flags().GetString("merchant")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	dateStr, _ := cmd.Flags().GetString("date")
	id, _ := cmd.Flags().GetString("id")

	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	date := time.Now()
	if dateStr != "" {
		if date, err = parseDate(dateStr); err != nil {
			return err
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	account, _, err := a.ensureAccount(cmd.Context(), 0)
	if err != nil {
		return err
	}

	txn := &model.Transaction{
		ID:          id,
		UserID:      a.user,
		AccountID:   account.ID,
		Date:        date.UTC(),
		Amount:      amount,
		Merchant:    merchant,
		Description: description,
		Category:    category,
	}
	created, err := a.engine.Ingest(cmd.Context(), a.store, txn)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Transaction %s: %.2f at %s [%s]\n", txn.ID, txn.Amount, txn.Merchant, txn.Category)
	printAlerts(out, created)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

func runTxnList(cmd *cobra.Command, _ []string) error {
	sinceStr, _ := cmd.Flags().GetString("since")
	category, _ := cmd.Flags().GetString("category")
	merchant, _ := cmd.Flags().GetString("merchant")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := model.TransactionFilter{Category: category, Merchant: merchant, Limit: limit}
	if sinceStr != "" {
		since, err := parseDate(sinceStr)
		if err != nil {
			return err
		}
		filter.Since = since.UTC()
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	txns, err := a.store.GetTransactions(cmd.Context(), a.user, filter)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		fmt.Fprintln(out, "No transactions.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tAMOUNT\tMERCHANT\tCATEGORY\tDESCRIPTION\n")
	for _, t := range txns {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n",
			t.Date.Local().Format("2006-01-02 15:04"), t.Amount, t.Merchant, t.Category, t.Description,
		)
	}
	w.Flush()

	return nil
}
