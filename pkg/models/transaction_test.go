package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeDescription(t *testing.T) {
	cases := map[string]string{
		"Foo   Bar\tBaz":        "Foo Bar Baz",
		"  leading and edge  ":  "leading and edge",
		"already clean":         "already clean",
		"tabs\t\tand\nnewlines": "tabs and newlines",
	}
	for input, want := range cases {
		if got := NormalizeDescription(input); got != want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	posted := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	a := &Transaction{
		AccountID:   "acct-1",
		Description: "COFFEE   SHOP",
		DatePosted:  posted,
		Amount:      decimal.RequireFromString("-4.50"),
	}
	b := &Transaction{
		AccountID:   "acct-1",
		Description: "Coffee Shop", // normalization and case fold apply
		DatePosted:  posted,
		Amount:      decimal.RequireFromString("-4.50"),
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("fingerprints differ: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}

	c := &Transaction{
		AccountID:   "acct-2",
		Description: "Coffee Shop",
		DatePosted:  posted,
		Amount:      decimal.RequireFromString("-4.50"),
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different accounts produced the same fingerprint")
	}
}

func TestIdentityKeyPrefersExplicitID(t *testing.T) {
	txn := &Transaction{ID: "bank-id-42", AccountID: "acct-1", Amount: decimal.New(1, 0)}
	if got := txn.IdentityKey(); got != "bank-id-42" {
		t.Errorf("IdentityKey() = %q, want explicit id verbatim", got)
	}
	txn.ID = ""
	if got := txn.IdentityKey(); got != txn.Fingerprint() {
		t.Errorf("IdentityKey() = %q, want fingerprint %q", got, txn.Fingerprint())
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	posted := time.Date(2025, 3, 17, 12, 30, 0, 0, time.UTC)
	txn := Transaction{
		ID:          "t-1",
		AccountID:   "acct-1",
		Description: "Grocery Run",
		DatePending: NullDate,
		DatePosted:  posted,
		Amount:      decimal.RequireFromString("-93.49"),
		Tax:         decimal.RequireFromString("7.21"),
		Currency:    "USD",
		Merchant:    "FreshMart",
		Tags:        []string{"groceries", "food"},
	}

	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.ID != txn.ID || got.AccountID != txn.AccountID || got.Description != txn.Description {
		t.Errorf("identity fields changed: %+v", got)
	}
	if !got.DatePending.Equal(NullDate) {
		t.Errorf("absent pending date should stay the sentinel, got %v", got.DatePending)
	}
	if !got.DatePosted.Equal(posted) {
		t.Errorf("posted date changed: %v", got.DatePosted)
	}
	if !got.Amount.Equal(txn.Amount) || !got.Tax.Equal(txn.Tax) {
		t.Errorf("amounts changed: amount=%s tax=%s", got.Amount, got.Tax)
	}
}

func TestSetTagIdempotent(t *testing.T) {
	txn := &Transaction{}
	txn.SetTag("food")
	txn.SetTag("food")
	if len(txn.Tags) != 1 {
		t.Errorf("expected 1 tag, got %v", txn.Tags)
	}
}
