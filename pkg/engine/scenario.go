package engine

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// Scenario is canned account state that makes one rule kind fire.
type Scenario struct {
	// Balance, when set, replaces the account balance.
	Balance      *float64
	Transactions []model.Transaction
}

// ScenarioFor builds the demo state for kind as of now.
// Payday reminders depend on the date alone, so their scenario is empty.
func ScenarioFor(kind model.RuleKind, userID, accountID string, now time.Time) (Scenario, error) {
	txn := func(amount float64, merchant, description, category string, date time.Time) model.Transaction {
		return model.Transaction{
			UserID:      userID,
			AccountID:   accountID,
			Date:        date,
			Amount:      amount,
			Merchant:    merchant,
			Description: description,
			Category:    category,
			CreatedAt:   now,
		}
	}

	switch kind {
	case model.KindLowBalance:
		balance := 450.00
		return Scenario{Balance: &balance}, nil

	case model.KindLargeTransaction:
		return Scenario{Transactions: []model.Transaction{
			txn(-5000.00, "SUSPICIOUS MERCHANT", "Large test transaction", "Other", now),
		}}, nil

	case model.KindCategoryLimit:
		return Scenario{Transactions: []model.Transaction{
			txn(-2500.00, "OCEAN BASKET", "Category limit test", "Restaurants", now),
		}}, nil

	case model.KindSpendingSpike:
		merchants := []string{"WOOLWORTHS", "CHECKERS", "PICK N PAY", "MAKRO", "GAME"}
		midnight := model.StartOfDay(now)
		s := Scenario{}
		for i, m := range merchants {
			// Today's charges must stay on today's date even just after midnight.
			at := now.Add(-time.Duration(i) * time.Minute)
			if at.Before(midnight) {
				at = midnight
			}
			s.Transactions = append(s.Transactions, txn(
				-float64(300+i*50), m, fmt.Sprintf("Spike transaction %d", i+1), "Groceries", at,
			))
		}
		// Earlier spending gives the daily average enough samples.
		s.Transactions = append(s.Transactions,
			txn(-200.00, "SHELL", "Fuel", "Transport", now.AddDate(0, 0, -2)),
			txn(-200.00, "ENGEN", "Fuel", "Transport", now.AddDate(0, 0, -4)),
		)
		return s, nil

	case model.KindNewSubscription:
		s := Scenario{}
		for i := 0; i < 3; i++ {
			s.Transactions = append(s.Transactions, txn(
				-99.99, "NETFLIX", "NETFLIX SUBSCRIPTION", "Entertainment",
				now.AddDate(0, 0, -30*i),
			))
		}
		return s, nil

	case model.KindPaydayReminder:
		return Scenario{}, nil

	default:
		return Scenario{}, fmt.Errorf("no scenario for rule kind %q", kind)
	}
}
