package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <rule-type>",
	Short: "Seed demo data that makes a rule type fire, then evaluate",
	Long: `Seed demo account state for one rule type and run an evaluation pass.
Useful for checking notifier wiring end to end. Payday reminders depend only
on the date, so triggering them seeds nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	kind := model.RuleKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown rule type %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	account, _, err := a.ensureAccount(ctx, 0)
	if err != nil {
		return err
	}

	scenario, err := engine.ScenarioFor(kind, a.user, account.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if scenario.Balance != nil {
		account.CurrentBalance = *scenario.Balance
		account.AvailableBalance = *scenario.Balance
		account.LastSync = time.Now().UTC()
		if err := a.store.UpsertAccount(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
	}
	for i := range scenario.Transactions {
		if _, err := a.store.AddTransaction(ctx, &scenario.Transactions[i]); err != nil {
			return fmt.Errorf("seed transaction: %w", err)
		}
	}
	a.logger.Debug("scenario seeded", "rule_type", kind, "transactions", len(scenario.Transactions))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %s scenario for %s (%d transactions).\n", kind, a.user, len(scenario.Transactions))

	created, err := a.engine.EvaluateAllRules(ctx, a.user)
	printAlerts(out, created)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
