package main

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfigueroa/bankfeed/pkg/export"
	"github.com/rfigueroa/bankfeed/pkg/models"
)

type filters struct {
	startDate string
	endDate   string
	minAmount float64
	maxAmount float64
	merchant  string
}

func (f *filters) toFilterFunc() export.FilterFunc {
	return func(t *models.Transaction) bool {
		if f.startDate != "" {
			start, err := time.Parse("2006-01-02", f.startDate)
			if err == nil && t.DatePosted.Before(start) {
				return false
			}
		}
		if f.endDate != "" {
			end, err := time.Parse("2006-01-02", f.endDate)
			if err == nil && t.DatePosted.After(end.Add(24*time.Hour)) {
				return false
			}
		}
		if f.minAmount != 0 && t.Amount.LessThan(decimal.NewFromFloat(f.minAmount)) {
			return false
		}
		if f.maxAmount != 0 && t.Amount.GreaterThan(decimal.NewFromFloat(f.maxAmount)) {
			return false
		}
		if f.merchant != "" {
			needle := strings.ToLower(f.merchant)
			inMerchant := strings.Contains(strings.ToLower(t.Merchant), needle)
			inDescription := strings.Contains(strings.ToLower(t.Description), needle)
			if !inMerchant && !inDescription {
				return false
			}
		}
		return true
	}
}
