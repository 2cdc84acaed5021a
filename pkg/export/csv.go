// Package export writes canonical transactions back out as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rfigueroa/bankfeed/pkg/models"
)

// FilterFunc selects which transactions are written. Nil writes all.
type FilterFunc func(*models.Transaction) bool

var header = []string{
	"id", "accountId", "description", "datePending", "datePosted",
	"amount", "tax", "currency", "merchant", "tags",
}

// WriteCSV streams transactions as CSV. Dates use the short ISO form,
// absent dates are left empty, tags join with "|".
func WriteCSV(writer io.Writer, txns []*models.Transaction, filter FilterFunc) error {
	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, t := range txns {
		if filter != nil && !filter(t) {
			continue
		}
		record := []string{
			t.ID,
			t.AccountID,
			t.Description,
			shortDate(t.DatePending),
			shortDate(t.DatePosted),
			t.Amount.String(),
			t.Tax.String(),
			t.Currency,
			t.Merchant,
			strings.Join(t.Tags, "|"),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("error writing transaction %s: %w", t.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func shortDate(date time.Time) string {
	if date.Equal(models.NullDate) {
		return ""
	}
	return date.UTC().Format("2006-01-02")
}
