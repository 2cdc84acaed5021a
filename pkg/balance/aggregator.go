// Package balance computes running and total balances from persisted
// transactions. Pure read, no mutation.
package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfigueroa/bankfeed/pkg/models"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

// Options tune an aggregation. Tax is informational and only subtracted
// when NetOfTax is set.
type Options struct {
	NetOfTax bool
}

// Point is one step of the running balance sequence.
type Point struct {
	Date    time.Time
	Running decimal.Decimal
}

// MarshalJSON renders the running value as a bare number, matching the
// transaction wire form.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date    string      `json:"date"`
		Running json.Number `json:"runningBalance"`
	}{
		Date:    p.Date.UTC().Format(time.RFC3339),
		Running: json.Number(p.Running.String()),
	})
}

// BalanceReport is the aggregation result for one account.
type BalanceReport struct {
	Total  decimal.Decimal
	ByDate []Point
}

func (r BalanceReport) MarshalJSON() ([]byte, error) {
	points := r.ByDate
	if points == nil {
		points = []Point{}
	}
	return json.Marshal(struct {
		Total  json.Number `json:"total"`
		ByDate []Point     `json:"byDate"`
	}{
		Total:  json.Number(r.Total.String()),
		ByDate: points,
	})
}

// Aggregator reads an account's transactions ordered by posting date.
type Aggregator struct {
	store store.Store
}

func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Aggregate sums an account's transactions in posting-date order. Ties on
// the date fall back to identity-key order, which the store's key layout
// already provides, so results are deterministic.
func (a *Aggregator) Aggregate(ctx context.Context, accountID string, opts Options) (*BalanceReport, error) {
	txns, err := a.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &BalanceReport{Total: decimal.Zero, ByDate: make([]Point, 0, len(txns))}
	running := decimal.Zero
	for _, txn := range txns {
		amount := txn.Amount
		if opts.NetOfTax {
			amount = amount.Sub(txn.Tax)
		}
		running = running.Add(amount)
		report.ByDate = append(report.ByDate, Point{Date: txn.DatePosted, Running: running})
	}
	report.Total = running
	return report, nil
}

// Transactions returns an account's persisted transactions in
// posting-date order. Shared by the export surface.
func (a *Aggregator) Transactions(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	records, err := a.store.Find(ctx, store.CollectionTransactions, accountID+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions for %s: %w", accountID, err)
	}
	txns := make([]*models.Transaction, 0, len(records))
	for _, record := range records {
		var txn models.Transaction
		if err := json.Unmarshal(record.Value, &txn); err != nil {
			return nil, fmt.Errorf("corrupt transaction record %s: %w", record.Key, err)
		}
		txns = append(txns, &txn)
	}
	// Records arrive key-ordered; a stable sort keeps that as the
	// tie-break within one posting date.
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].DatePosted.Before(txns[j].DatePosted)
	})
	return txns, nil
}
