package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/rules"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage alert rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert rules",
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an alert rule",
	RunE:  runRulesAdd,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(cmd, args[0], true) },
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(cmd, args[0], false) },
}

var rulesSetCmd = &cobra.Command{
	Use:   "set <rule-id> <parameters-json>",
	Short: "Replace a rule's parameters",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesSet,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesEnableCmd, rulesDisableCmd, rulesSetCmd)

	rulesAddCmd.Flags().StringP("type", "t", "", "Rule type (low_balance, large_transaction, category_limit, spending_spike, new_subscription, payday_reminder)")
	rulesAddCmd.Flags().StringP("name", "n", "", "Rule name (default: the rule type)")
	rulesAddCmd.Flags().StringP("params", "p", "", "Parameters as JSON (default: the type's defaults)")
	rulesAddCmd.Flags().Bool("disabled", false, "Create the rule disabled")
	_ = rulesAddCmd.MarkFlagRequired("type")
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.store.ListRules(cmd.Context(), a.user)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No rules configured. Use 'falarm init' to create the defaults.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\tENABLED\tPARAMETERS\n")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, r.Kind, r.Enabled, r.Parameters)
	}
	w.Flush()

	return nil
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	kindFlag, _ := cmd.Flags().GetString("type")
	name, _ := cmd.Flags().GetString("name")
	params, _ := cmd.Flags().GetString("params")
	disabled, _ := cmd.Flags().GetBool("disabled")

	kind := model.RuleKind(kindFlag)
	if params == "" {
		ev, err := rules.Defaults(kind)
		if err != nil {
			return err
		}
		if params, err = rules.Encode(ev); err != nil {
			return err
		}
	} else if err := rules.ValidateParams(kind, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if name == "" {
		name = string(kind)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rule := &model.AlertRule{
		UserID:     a.user,
		Name:       name,
		Kind:       kind,
		Parameters: params,
		Enabled:    !disabled,
	}
	if err := a.store.CreateRule(cmd.Context(), rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rule created: %s (%s) %s\n", rule.ID, rule.Kind, rule.Parameters)
	return nil
}

func setRuleEnabled(cmd *cobra.Command, ruleID string, enabled bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetRuleEnabled(cmd.Context(), a.user, ruleID, enabled); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %s.\n", ruleID, state)
	return nil
}

func runRulesSet(cmd *cobra.Command, args []string) error {
	ruleID, params := args[0], args[1]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.store.ListRules(cmd.Context(), a.user)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	var rule *model.AlertRule
	for i := range list {
		if list[i].ID == ruleID {
			rule = &list[i]
			break
		}
	}
	if rule == nil {
		return fmt.Errorf("rule %s not found", ruleID)
	}

	if err := rules.ValidateParams(rule.Kind, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if err := a.store.UpdateRuleParameters(cmd.Context(), a.user, ruleID, params); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rule %s parameters set to %s\n", ruleID, params)
	return nil
}
