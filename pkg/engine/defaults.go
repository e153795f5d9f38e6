package engine

import (
	"context"
	"fmt"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/rules"
)

// RuleStore is the rule persistence EnsureDefaultRules needs.
type RuleStore interface {
	ListRules(ctx context.Context, userID string) ([]model.AlertRule, error)
	CreateRule(ctx context.Context, rule *model.AlertRule) error
}

var defaultRuleNames = map[model.RuleKind]string{
	model.KindLowBalance:       "Low Balance Warning",
	model.KindLargeTransaction: "Large Transaction Alert",
	model.KindCategoryLimit:    "Restaurant Spending Limit",
	model.KindSpendingSpike:    "Spending Spike Detection",
	model.KindNewSubscription:  "New Subscription Detection",
	model.KindPaydayReminder:   "Payday Reminder",
}

// DefaultRules returns one enabled rule per kind with default parameters.
func DefaultRules(userID string) []model.AlertRule {
	out := make([]model.AlertRule, 0, len(model.RuleKinds))
	for _, kind := range model.RuleKinds {
		ev, _ := rules.Defaults(kind)
		params, _ := rules.Encode(ev)
		out = append(out, model.AlertRule{
			UserID:     userID,
			Name:       defaultRuleNames[kind],
			Kind:       kind,
			Parameters: params,
			Enabled:    true,
		})
	}
	return out
}

// EnsureDefaultRules seeds the default rule set when userID has no rules yet.
// It returns the number of rules created.
func EnsureDefaultRules(ctx context.Context, store RuleStore, userID string) (int, error) {
	existing, err := store.ListRules(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, rule := range DefaultRules(userID) {
		if err := store.CreateRule(ctx, &rule); err != nil {
			return created, fmt.Errorf("create default rule %s: %w", rule.Kind, err)
		}
		created++
	}
	return created, nil
}
