package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfigueroa/bankfeed/pkg/models"
)

// Layouts tried when coercing statement dates. Bank exports are wildly
// inconsistent here, so we try the formats seen in the wild and normalize
// everything to UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// Build converts one raw statement row into a canonical transaction using
// the resolved mapping set. Pure: no I/O, no store access. Columns present
// in the row but absent from the mapping are dropped; a dynamic rule whose
// source column is missing leaves its target unset.
func Build(rawRow map[string]string, mappings []models.FieldMapping) (*models.Transaction, *RowError) {
	txn := &models.Transaction{
		DatePending: models.NullDate,
		DatePosted:  models.NullDate,
		Amount:      decimal.Zero,
		Tax:         decimal.Zero,
	}
	amountSet := false

	for _, rule := range mappings {
		var value string
		switch rule.Kind {
		case models.MapStatic:
			value = rule.StaticValue()
		case models.MapDynamic:
			raw, ok := rawRow[rule.SourceField]
			if !ok {
				continue // column presence varies across export periods
			}
			value = raw
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch rule.TargetField {
		case "":
			// explicit ignore
		case models.FieldID:
			txn.ID = strings.TrimSpace(value)
		case models.FieldDescription:
			txn.Description = models.NormalizeDescription(value)
		case models.FieldMerchant:
			txn.Merchant = models.NormalizeDescription(value)
		case models.FieldCurrency:
			txn.Currency = strings.TrimSpace(value)
		case models.FieldTags:
			txn.Tags = splitTags(value)
		case models.FieldAmount:
			amount, err := parseAmount(value)
			if err != nil {
				return nil, &RowError{Kind: BadAmount, Column: rule.SourceField, Value: value, Err: err}
			}
			txn.Amount = amount
			amountSet = true
		case models.FieldTax:
			tax, err := parseAmount(value)
			if err != nil {
				return nil, &RowError{Kind: BadAmount, Column: rule.SourceField, Value: value, Err: err}
			}
			txn.Tax = tax
		case models.FieldDatePosted:
			posted, err := parseDate(value)
			if err != nil {
				// Posting date feeds the dedup fingerprint, so a bad one
				// rejects the row.
				return nil, &RowError{Kind: BadDate, Column: rule.SourceField, Value: value, Err: err}
			}
			txn.DatePosted = posted
		case models.FieldDatePending:
			pending, err := parseDate(value)
			if err != nil {
				continue // optional target, leave the sentinel
			}
			txn.DatePending = pending
		}
	}

	if !amountSet {
		return nil, &RowError{Kind: MissingAmount, Column: models.FieldAmount}
	}
	return txn, nil
}

// parseAmount coerces bank formatting into a decimal: currency symbols and
// thousands separators stripped, parentheses meaning negative.
func parseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func parseDate(value string) (time.Time, error) {
	cleaned := strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, cleaned)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func splitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, "|") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
