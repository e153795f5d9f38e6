package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default rule set and a primary account",
	RunE:  runInit,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Manage the account balance",
}

var balanceSetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Record the current balance and evaluate rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalanceSet,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.AddCommand(balanceSetCmd)

	initCmd.Flags().Float64("balance", 0, "Opening balance of a newly created account")
	balanceSetCmd.Flags().Float64("available", -1, "Available balance (default: the current balance)")
}

// ensureAccount returns the user's account, creating an empty one when missing.
func (a *app) ensureAccount(ctx context.Context, balance float64) (*model.Account, bool, error) {
	account, err := a.store.GetAccount(ctx, a.user)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("get account: %w", err)
	}

	account = &model.Account{
		UserID:           a.user,
		Name:             "Primary Account",
		CurrentBalance:   balance,
		AvailableBalance: balance,
		Currency:         a.cfg.Defaults.Currency,
		LastSync:         time.Now().UTC(),
	}
	if err := a.store.UpsertAccount(ctx, account); err != nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}
	return account, true, nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	balance, _ := cmd.Flags().GetFloat64("balance")
	out := cmd.OutOrStdout()

	created, err := engine.EnsureDefaultRules(cmd.Context(), a.store, a.user)
	if err != nil {
		return err
	}
	if created > 0 {
		fmt.Fprintf(out, "Created %d default rules for %s.\n", created, a.user)
	} else {
		fmt.Fprintf(out, "Rules already configured for %s.\n", a.user)
	}

	account, isNew, err := a.ensureAccount(cmd.Context(), balance)
	if err != nil {
		return err
	}
	if isNew {
		fmt.Fprintf(out, "Created account %s (%s %.2f).\n", account.Name, account.Currency, account.CurrentBalance)
	}

	return nil
}

func runBalanceSet(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	available, _ := cmd.Flags().GetFloat64("available")
	if available < 0 {
		available = amount
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	account, _, err := a.ensureAccount(cmd.Context(), amount)
	if err != nil {
		return err
	}
	account.CurrentBalance = amount
	account.AvailableBalance = available
	account.LastSync = time.Now().UTC()
	if err := a.store.UpsertAccount(cmd.Context(), account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Balance set to %s %.2f.\n", account.Currency, amount)

	created, err := a.engine.EvaluateAllRules(cmd.Context(), a.user)
	printAlerts(out, created)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
