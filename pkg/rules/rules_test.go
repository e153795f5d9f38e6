package rules_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday, 22 October 2026.
var now = time.Date(2026, 10, 22, 14, 30, 0, 0, time.UTC)

func outflow(id, merchant string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:        id,
		Merchant:  merchant,
		Amount:    -amount,
		Date:      date,
		CreatedAt: date,
	}
}

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func TestParse_Defaults(t *testing.T) {
	for _, kind := range model.RuleKinds {
		t.Run(string(kind), func(t *testing.T) {
			ev, err := rules.Parse(kind, "")
			require.NoError(t, err)
			assert.Equal(t, kind, ev.Kind())

			def, err := rules.Defaults(kind)
			require.NoError(t, err)
			assert.Equal(t, def, ev)
		})
	}
}

func TestParse_PartialBagKeepsDefaults(t *testing.T) {
	ev, err := rules.Parse(model.KindCategoryLimit, `{"limit": 500}`)
	require.NoError(t, err)
	assert.Equal(t, &rules.CategoryLimit{Category: "Restaurants", Limit: 500}, ev)

	ev, err = rules.Parse(model.KindPaydayReminder, `{"payday": 1}`)
	require.NoError(t, err)
	assert.Equal(t, &rules.PaydayReminder{Payday: 1, DaysBefore: 3}, ev)

	ev, err = rules.Parse(model.KindSpendingSpike, `null`)
	require.NoError(t, err)
	assert.Equal(t, &rules.SpendingSpike{Multiplier: 2.0}, ev)
}

func TestParse_MalformedFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		kind model.RuleKind
		raw  string
		want rules.Evaluator
	}{
		{"invalid json", model.KindLowBalance, `{"threshold":`, &rules.LowBalance{Threshold: 1000}},
		{"wrong type", model.KindLargeTransaction, `{"threshold":"big"}`, &rules.LargeTransaction{Threshold: 2000}},
		{"partial then wrong type", model.KindCategoryLimit, `{"limit": 10, "category": 7}`, &rules.CategoryLimit{Category: "Restaurants", Limit: 2000}},
		{"not an object", model.KindPaydayReminder, `[1,2]`, &rules.PaydayReminder{Payday: 25, DaysBefore: 3}},
		{"empty category", model.KindCategoryLimit, `{"category": "", "limit": 500}`, &rules.CategoryLimit{Category: "Restaurants", Limit: 2000}},
		{"blank category", model.KindCategoryLimit, `{"category": "   "}`, &rules.CategoryLimit{Category: "Restaurants", Limit: 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := rules.Parse(tt.kind, tt.raw)
			assert.ErrorIs(t, err, rules.ErrMalformedParams)
			assert.Equal(t, tt.want, ev)
			assert.ErrorIs(t, rules.ValidateParams(tt.kind, tt.raw), rules.ErrMalformedParams)
		})
	}
}

func TestParse_UnknownKind(t *testing.T) {
	ev, err := rules.Parse("overdraft", `{}`)
	assert.ErrorIs(t, err, rules.ErrUnknownKind)
	assert.Nil(t, ev)
}

func TestEncode(t *testing.T) {
	raw, err := rules.Encode(&rules.SpendingSpike{Multiplier: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"threshold_multiplier": 3}`, raw)

	raw, err = rules.Encode(&rules.PaydayReminder{Payday: 1, DaysBefore: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"payday": 1, "days_before": 2}`, raw)
}

func TestPolicy_Suppresses(t *testing.T) {
	history := []model.Alert{
		{Body: "Unusual transaction: 5000.00 at TAKEALOT", CreatedAt: daysAgo(3)},
	}

	assert.True(t, rules.ContentMatch("TAKEALOT").Suppresses(history))
	assert.False(t, rules.ContentMatch("MAKRO").Suppresses(history))
	assert.True(t, rules.SinceWindow(daysAgo(3)).Suppresses(history), "since is inclusive")
	assert.False(t, rules.SinceWindow(daysAgo(2)).Suppresses(history))
	assert.False(t, rules.SinceWindow(daysAgo(30)).Suppresses(nil))
}

func TestLowBalance(t *testing.T) {
	r := &rules.LowBalance{Threshold: 1000}
	account := &model.Account{CurrentBalance: 450}

	c := r.Evaluate(rules.Snapshot{Account: account, Now: now})
	require.NotNil(t, c)
	assert.Equal(t, model.SeverityWarning, c.Severity)
	assert.Equal(t, "Low Balance Alert", c.Title)
	assert.Contains(t, c.Body, "450.00")
	assert.Contains(t, c.Body, "1000.00")

	recent := []model.Alert{{Body: c.Body, CreatedAt: now.Add(-23 * time.Hour)}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Account: account, History: recent, Now: now}))

	stale := []model.Alert{{Body: c.Body, CreatedAt: now.Add(-25 * time.Hour)}}
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Account: account, History: stale, Now: now}))
}

func TestLowBalance_Boundaries(t *testing.T) {
	r := &rules.LowBalance{Threshold: 1000}

	assert.Nil(t, r.Evaluate(rules.Snapshot{Account: &model.Account{CurrentBalance: 1000}, Now: now}), "equal does not trigger")
	assert.Nil(t, r.Evaluate(rules.Snapshot{Now: now}), "no account")
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Account: &model.Account{CurrentBalance: 999.99}, Now: now}))

	_, ok := r.Window(now)
	assert.False(t, ok)
	assert.Equal(t, now.Add(-24*time.Hour), r.History(now).Since)
}

func TestLowBalance_CurrencyPrefix(t *testing.T) {
	r := &rules.LowBalance{Threshold: 1000}
	c := r.Evaluate(rules.Snapshot{Account: &model.Account{CurrentBalance: -12.5}, Currency: "ZAR", Now: now})
	require.NotNil(t, c)
	assert.Equal(t, "Your balance (ZAR -12.50) is below ZAR 1000.00", c.Body)
}

func TestLargeTransaction(t *testing.T) {
	r := &rules.LargeTransaction{Threshold: 2000}
	txn := outflow("t1", "TAKEALOT", 5000, now.Add(-time.Minute))

	c := r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{txn}, Now: now})
	require.NotNil(t, c)
	assert.Equal(t, model.SeverityCritical, c.Severity)
	assert.Equal(t, "Unusual transaction: 5000.00 at TAKEALOT", c.Body)
	assert.Equal(t, rules.ContentMatch("TAKEALOT"), c.Dedup)

	// A second large spend at the same merchant stays quiet.
	again := outflow("t2", "TAKEALOT", 3000, now.Add(-30*time.Second))
	history := []model.Alert{{Body: c.Body, CreatedAt: now}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{txn, again}, History: history, Now: now}))
}

func TestLargeTransaction_Window(t *testing.T) {
	r := &rules.LargeTransaction{Threshold: 2000}

	old := outflow("t1", "MAKRO", 5000, now.Add(-6*time.Minute))
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{old}, Now: now}))

	// Booked long ago but ingested just now still counts.
	late := outflow("t2", "MAKRO", 5000, daysAgo(3))
	late.CreatedAt = now.Add(-time.Minute)
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{late}, Now: now}))

	exact := outflow("t3", "MAKRO", 2000, now)
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{exact}, Now: now}), "threshold is strict")

	inflow := model.Transaction{ID: "t4", Merchant: "REFUND", Amount: 9000, CreatedAt: now}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{inflow}, Now: now}))

	f, ok := r.Window(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(-5*time.Minute), f.CreatedSince)
	assert.Equal(t, model.SignOutflow, f.Sign)
}

func TestLargeTransaction_MostRecentWins(t *testing.T) {
	r := &rules.LargeTransaction{Threshold: 2000}
	older := outflow("t1", "MAKRO", 4000, now.Add(-4*time.Minute))
	newer := outflow("t2", "GAME", 2500, now.Add(-time.Minute))

	c := r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{newer, older}, Now: now})
	require.NotNil(t, c)
	assert.Contains(t, c.Body, "GAME")

	// Only the most recent is considered, even when it is suppressed.
	history := []model.Alert{{Body: "Unusual transaction: 2500.00 at GAME"}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{newer, older}, History: history, Now: now}))
}

func TestLargeTransaction_MissingMerchant(t *testing.T) {
	r := &rules.LargeTransaction{Threshold: 2000}
	txn := outflow("t1", "", 5000, now)
	txn.Description = "Cash withdrawal"

	c := r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{txn}, Now: now})
	require.NotNil(t, c)
	assert.Contains(t, c.Body, "Cash withdrawal")
}

func TestCategoryLimit(t *testing.T) {
	r := &rules.CategoryLimit{Category: "Restaurants", Limit: 2000}
	restaurant := func(id string, amount float64, date time.Time) model.Transaction {
		txn := outflow(id, "OCEAN BASKET", amount, date)
		txn.Category = "Restaurants"
		return txn
	}

	txns := []model.Transaction{
		restaurant("t1", 1500, daysAgo(10)),
		restaurant("t2", 600, daysAgo(1)),
		restaurant("t3", 5000, daysAgo(30)),
		{ID: "t4", Category: "Restaurants", Amount: 1000, Date: daysAgo(2)},
		{ID: "t5", Category: "Groceries", Amount: -3000, Date: daysAgo(2)},
	}

	c := r.Evaluate(rules.Snapshot{Transactions: txns, Now: now})
	require.NotNil(t, c)
	assert.Equal(t, "Restaurants Limit Exceeded", c.Title)
	assert.Equal(t, model.SeverityWarning, c.Severity)
	assert.Equal(t, "You've spent 2100.00 on Restaurants this month (limit: 2000.00)", c.Body)

	thisMonth := []model.Alert{{Body: c.Body, CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: thisMonth, Now: now}))

	lastMonth := []model.Alert{{Body: c.Body, CreatedAt: time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC)}}
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: lastMonth, Now: now}))
}

func TestCategoryLimit_AtLimit(t *testing.T) {
	r := &rules.CategoryLimit{Category: "Restaurants", Limit: 2000}
	txn := outflow("t1", "NANDOS", 2000, daysAgo(1))
	txn.Category = "Restaurants"
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{txn}, Now: now}))

	txn.Category = "restaurants"
	txn.Amount = -2500
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{txn}, Now: now}), "category match is exact")
}

func TestCategoryLimit_EmptyCategoryNeverFires(t *testing.T) {
	r := &rules.CategoryLimit{Category: "", Limit: 2000}
	groceries := outflow("t1", "WOOLWORTHS", 1500, daysAgo(1))
	groceries.Category = "Groceries"
	fuel := outflow("t2", "SHELL", 900, daysAgo(1))
	fuel.Category = "Transport"

	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: []model.Transaction{groceries, fuel}, Now: now}))
}

func TestSpendingSpike(t *testing.T) {
	r := &rules.SpendingSpike{Multiplier: 2}
	txns := []model.Transaction{
		outflow("t1", "WOOLWORTHS", 300, now.Add(-time.Hour)),
		outflow("t2", "CHECKERS", 400, now.Add(-2*time.Hour)),
		outflow("t3", "SPAR", 500, now.Add(-3*time.Hour)),
		outflow("t4", "PICK N PAY", 350, now.Add(-4*time.Hour)),
		outflow("t5", "MAKRO", 350, now.Add(-5*time.Hour)),
		outflow("t6", "SHELL", 200, daysAgo(2)),
		outflow("t7", "ENGEN", 200, daysAgo(4)),
	}

	c := r.Evaluate(rules.Snapshot{Transactions: txns, Now: now})
	require.NotNil(t, c)
	assert.Equal(t, "Spending Spike Detected", c.Title)
	assert.Equal(t, model.SeverityWarning, c.Severity)
	assert.Contains(t, c.Body, "1900.00")
	assert.Contains(t, c.Body, "2x")
	assert.Contains(t, c.Body, "328.57")

	today := []model.Alert{{Body: c.Body, CreatedAt: now.Add(-14 * time.Hour)}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: today, Now: now}))

	yesterday := []model.Alert{{Body: c.Body, CreatedAt: now.Add(-15 * time.Hour)}}
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: yesterday, Now: now}))
}

func TestSpendingSpike_NeedsSevenOutflows(t *testing.T) {
	r := &rules.SpendingSpike{Multiplier: 2}
	var txns []model.Transaction
	for i, amount := range []float64{9000, 8000, 7000, 6000, 5000, 4000} {
		txns = append(txns, outflow(string(rune('a'+i)), "GAME", amount, now.Add(-time.Minute)))
	}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, Now: now}))

	// Inflows and transactions older than seven days do not count towards the sample.
	txns = append(txns,
		model.Transaction{ID: "in", Amount: 100, Date: now},
		outflow("old", "GAME", 50, daysAgo(8)),
	)
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, Now: now}))
}

func TestSpendingSpike_Floor(t *testing.T) {
	r := &rules.SpendingSpike{Multiplier: 2}
	var txns []model.Transaction
	for i := 0; i < 6; i++ {
		txns = append(txns, outflow(string(rune('a'+i)), "KFC", 80, now.Add(-time.Hour)))
	}
	txns = append(txns, outflow("g", "KFC", 10, daysAgo(3)))

	// 480 today is far above twice the average but below the absolute floor.
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, Now: now}))
}

func TestNewSubscription(t *testing.T) {
	r := &rules.NewSubscription{}
	txns := []model.Transaction{
		outflow("n1", "NETFLIX", 99.99, daysAgo(25)),
		outflow("n2", "NETFLIX", 99.99, daysAgo(15)),
		outflow("n3", "NETFLIX", 99.99, daysAgo(5)),
	}

	c := r.Evaluate(rules.Snapshot{Transactions: txns, Now: now})
	require.NotNil(t, c)
	assert.Equal(t, "New Subscription Detected", c.Title)
	assert.Equal(t, model.SeverityInfo, c.Severity)
	assert.Equal(t, "Recurring payment detected: NETFLIX - 99.99", c.Body)

	txns = append(txns, outflow("n4", "NETFLIX", 99.99, daysAgo(1)))
	history := []model.Alert{{Body: c.Body, CreatedAt: now}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: history, Now: now}))
}

func TestNewSubscription_RepeatsBeforeWindow(t *testing.T) {
	r := &rules.NewSubscription{}
	txns := []model.Transaction{
		outflow("n1", "NETFLIX", 99.99, daysAgo(62)),
		outflow("n2", "NETFLIX", 99.99, daysAgo(32)),
		outflow("n3", "NETFLIX", 99.99, daysAgo(2)),
	}
	c := r.Evaluate(rules.Snapshot{Transactions: txns, Now: now})
	require.NotNil(t, c)
	assert.Contains(t, c.Body, "NETFLIX")
}

func TestNewSubscription_NotRecurring(t *testing.T) {
	r := &rules.NewSubscription{}

	twice := []model.Transaction{
		outflow("n1", "NETFLIX", 99.99, daysAgo(20)),
		outflow("n2", "NETFLIX", 99.99, daysAgo(5)),
	}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: twice, Now: now}), "needs two other matches")

	drifting := []model.Transaction{
		outflow("n1", "GYM", 100, daysAgo(20)),
		outflow("n2", "GYM", 106, daysAgo(10)),
		outflow("n3", "GYM", 94, daysAgo(1)),
	}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: drifting, Now: now}), "amounts beyond 5%")

	tolerated := []model.Transaction{
		outflow("n1", "GYM", 100, daysAgo(20)),
		outflow("n2", "GYM", 105, daysAgo(10)),
		outflow("n3", "GYM", 95, daysAgo(1)),
	}
	assert.NotNil(t, r.Evaluate(rules.Snapshot{Transactions: tolerated, Now: now}))

	refunds := []model.Transaction{
		outflow("n1", "SHOP", 50, daysAgo(20)),
		{ID: "n2", Merchant: "SHOP", Amount: 50, Date: daysAgo(10)},
		{ID: "n3", Merchant: "SHOP", Amount: 50, Date: daysAgo(5)},
	}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: refunds, Now: now}), "signs must agree")

	edge := []model.Transaction{
		outflow("n1", "DSTV", 800, daysAgo(30)),
		outflow("n2", "DSTV", 800, daysAgo(60)),
		outflow("n3", "DSTV", 800, daysAgo(90)),
	}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: edge, Now: now}), "window start is exclusive")
}

func TestNewSubscription_EarliestCandidateOnly(t *testing.T) {
	r := &rules.NewSubscription{}
	txns := []model.Transaction{
		outflow("s1", "SPOTIFY", 59.99, daysAgo(28)),
		outflow("s2", "SPOTIFY", 59.99, daysAgo(58)),
		outflow("s3", "SPOTIFY", 59.99, daysAgo(88)),
		outflow("n1", "NETFLIX", 99.99, daysAgo(20)),
		outflow("n2", "NETFLIX", 99.99, daysAgo(50)),
		outflow("n3", "NETFLIX", 99.99, daysAgo(80)),
	}

	c := r.Evaluate(rules.Snapshot{Transactions: txns, Now: now})
	require.NotNil(t, c)
	assert.Contains(t, c.Body, "SPOTIFY")

	history := []model.Alert{{Body: c.Body}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{Transactions: txns, History: history, Now: now}))
}

func TestPaydayReminder(t *testing.T) {
	r := &rules.PaydayReminder{Payday: 25, DaysBefore: 3}

	c := r.Evaluate(rules.Snapshot{Now: now})
	require.NotNil(t, c)
	assert.Equal(t, "Payday Approaching", c.Title)
	assert.Equal(t, model.SeverityInfo, c.Severity)
	assert.Equal(t, "Payday is in 3 days!", c.Body)

	history := []model.Alert{{Body: c.Body, CreatedAt: time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)}}
	assert.Nil(t, r.Evaluate(rules.Snapshot{History: history, Now: now}))
}

func TestPaydayReminder_DaysUntil(t *testing.T) {
	r := &rules.PaydayReminder{Payday: 25, DaysBefore: 3}
	tests := []struct {
		day   int
		want  int
		fires bool
	}{
		{21, 4, false},
		{22, 3, true},
		{24, 1, true},
		{25, 0, false},
		{26, 29, false},
		{31, 24, false},
	}
	for _, tt := range tests {
		day := time.Date(2026, 10, tt.day, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.want, r.DaysUntil(day), "day %d", tt.day)
		assert.Equal(t, tt.fires, r.Evaluate(rules.Snapshot{Now: day}) != nil, "day %d", tt.day)
	}

	early := &rules.PaydayReminder{Payday: 1, DaysBefore: 3}
	// The fixed 30-day cycle puts payday 1 at 2 days away on the 29th, regardless of month length.
	assert.Equal(t, 2, early.DaysUntil(time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC)))
}
