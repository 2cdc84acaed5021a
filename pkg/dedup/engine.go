// Package dedup persists accepted transactions idempotently. Re-running
// the same import, or an overlapping-date superset, inserts nothing new.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/rfigueroa/bankfeed/pkg/models"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

// ErrCancelled signals an interrupted commit. Rows inserted before the
// interrupt stay committed; the returned report says exactly which.
var ErrCancelled = errors.New("commit cancelled")

// CommitReport summarizes one commit batch.
type CommitReport struct {
	Inserted int
	Skipped  int
	// InsertedKeys are the identity keys written by this commit, in
	// source row order.
	InsertedKeys []string
}

// Engine writes transactions through the store's insert-if-absent
// primitive. Existing persisted data always wins over a re-import.
type Engine struct {
	store  store.Store
	logger *log.Logger
}

func New(st store.Store, logger *log.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// Commit persists a batch for one account. The identity key is the source
// transaction id verbatim when present, otherwise the fingerprint of
// (account, posting date, amount, normalized description). Two
// same-fingerprint rows within one batch are both kept: repeat identical
// charges on the same day are real, so later occurrences get a counter
// suffix. The suffix is derived from source order, which makes it stable
// across re-imports of the same file.
func (e *Engine) Commit(ctx context.Context, accountID string, accepted []*models.Transaction) (*CommitReport, error) {
	report := &CommitReport{}
	seen := make(map[string]int)

	for i, txn := range accepted {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w after %d of %d rows: %v", ErrCancelled, i, len(accepted), err)
		}
		if txn.AccountID == "" {
			txn.AccountID = accountID
		}

		key := txn.IdentityKey()
		if txn.ID == "" {
			occurrence := seen[key]
			seen[key]++
			if occurrence > 0 {
				key = fmt.Sprintf("%s-%d", key, occurrence+1)
			}
			txn.ID = key
		}

		value, err := json.Marshal(txn)
		if err != nil {
			return report, fmt.Errorf("failed to encode transaction %s: %w", key, err)
		}

		inserted, err := e.store.UpsertIfAbsent(ctx, store.CollectionTransactions, TransactionKey(accountID, key), value)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, fmt.Errorf("%w after %d of %d rows: %v", ErrCancelled, i, len(accepted), err)
			}
			// Store failures are surfaced as-is; retry policy belongs to
			// the caller.
			return report, fmt.Errorf("store upsert failed for %s: %w", key, err)
		}
		if inserted {
			report.Inserted++
			report.InsertedKeys = append(report.InsertedKeys, key)
		} else {
			report.Skipped++
		}
	}

	e.logger.Info("committed batch",
		"account", accountID,
		"inserted", report.Inserted,
		"skipped", report.Skipped)
	return report, nil
}

// TransactionKey scopes a transaction identity key to its account. Keys
// share the account prefix, so a prefix scan returns one account's
// transactions in identity-key order.
func TransactionKey(accountID, identityKey string) string {
	return accountID + "/" + identityKey
}
