package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"golang.org/x/sync/errgroup"
)

// EvaluateUsers runs one pass per user, in parallel up to the configured limit.
// Every user is attempted; per-user failures are joined into the returned error.
func (e *Engine) EvaluateUsers(ctx context.Context, userIDs []string) (map[string][]model.Alert, error) {
	var (
		mu      sync.Mutex
		results = make(map[string][]model.Alert, len(userIDs))
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for _, id := range userIDs {
		g.Go(func() error {
			created, err := e.EvaluateAllRules(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			results[id] = created
			if err != nil {
				errs = append(errs, fmt.Errorf("user %q: %w", id, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}
