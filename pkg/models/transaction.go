package models

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NullDate is the sentinel used for absent dates. Keeping dates non-null
// keeps sorting and comparisons total.
var NullDate = time.Unix(0, 0).UTC()

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeDescription trims a description and collapses whitespace runs
// into single spaces.
func NormalizeDescription(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Transaction is the canonical record every statement row is converted to.
type Transaction struct {
	ID          string
	AccountID   string
	Description string
	DatePending time.Time
	DatePosted  time.Time
	Amount      decimal.Decimal
	Tax         decimal.Decimal
	Currency    string
	Merchant    string
	Tags        []string
}

// Fingerprint derives a deterministic dedup key for exports that carry no
// stable transaction id across downloads.
func (t *Transaction) Fingerprint() string {
	input := fmt.Sprintf("%s-%s-%s-%s",
		t.AccountID,
		t.DatePosted.UTC().Format("2006-01-02"),
		t.Amount.String(),
		strings.ToLower(NormalizeDescription(t.Description)))
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)[:16]
}

// IdentityKey is the key the dedup engine persists under: the source id
// verbatim when one was supplied, the fingerprint otherwise.
func (t *Transaction) IdentityKey() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Fingerprint()
}

// HasTag reports whether the tag is set on this transaction.
func (t *Transaction) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// SetTag adds a tag unless it is already present.
func (t *Transaction) SetTag(tag string) {
	if !t.HasTag(tag) {
		t.Tags = append(t.Tags, tag)
	}
}

type transactionJSON struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"accountId"`
	Description string      `json:"description"`
	DatePending string      `json:"datePending"`
	DatePosted  string      `json:"datePosted"`
	Amount      json.Number `json:"amount"`
	Tax         json.Number `json:"tax"`
	Currency    string      `json:"currency"`
	Merchant    string      `json:"merchant"`
	Tags        []string    `json:"tags"`
}

// MarshalJSON renders the wire form: ISO-8601 dates and numeric amounts.
func (t Transaction) MarshalJSON() ([]byte, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(transactionJSON{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Description: t.Description,
		DatePending: t.DatePending.UTC().Format(time.RFC3339),
		DatePosted:  t.DatePosted.UTC().Format(time.RFC3339),
		Amount:      json.Number(t.Amount.String()),
		Tax:         json.Number(t.Tax.String()),
		Currency:    t.Currency,
		Merchant:    t.Merchant,
		Tags:        tags,
	})
}

// UnmarshalJSON parses the wire form. Absent or empty dates normalize to
// NullDate, absent tax to zero.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var wire transactionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(wire.Amount.String())
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", wire.Amount, err)
	}
	tax := decimal.Zero
	if wire.Tax != "" {
		if tax, err = decimal.NewFromString(wire.Tax.String()); err != nil {
			return fmt.Errorf("invalid tax %q: %w", wire.Tax, err)
		}
	}
	t.ID = wire.ID
	t.AccountID = wire.AccountID
	t.Description = wire.Description
	t.DatePending = parseWireDate(wire.DatePending)
	t.DatePosted = parseWireDate(wire.DatePosted)
	t.Amount = amount
	t.Tax = tax
	t.Currency = wire.Currency
	t.Merchant = wire.Merchant
	t.Tags = wire.Tags
	return nil
}

func parseWireDate(s string) time.Time {
	if s == "" {
		return NullDate
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return NullDate
	}
	return parsed.UTC()
}
