package engine

import (
	"context"
	"fmt"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// TransactionWriter stores ingested transactions.
type TransactionWriter interface {
	AddTransaction(ctx context.Context, txn *model.Transaction) (bool, error)
}

// Ingest stores txn, categorizing it first when it has no category, then runs a
// pass for its user. A duplicate transaction ID is not stored again but still
// triggers the pass.
func (e *Engine) Ingest(ctx context.Context, w TransactionWriter, txn *model.Transaction) ([]model.Alert, error) {
	if txn.Category == "" {
		txn.Category = e.categorizer.Categorize(txn.Description, txn.Merchant)
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = e.now()
	}

	stored, err := w.AddTransaction(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}
	if !stored {
		e.logger.Debug("transaction already ingested", "transaction", txn.ID)
	}

	return e.EvaluateAllRules(ctx, txn.UserID)
}
