package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/rfigueroa/bankfeed/pkg/dedup"
	"github.com/rfigueroa/bankfeed/pkg/export"
	"github.com/rfigueroa/bankfeed/pkg/ingest"
)

var (
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// renderReport prints one import outcome: + inserted, = skipped (already
// persisted), ! rejected rows.
func renderReport(report *ingest.ImportReport, commit *dedup.CommitReport, filter export.FilterFunc) {
	inserted := make(map[string]struct{}, len(commit.InsertedKeys))
	for _, key := range commit.InsertedKeys {
		inserted[key] = struct{}{}
	}

	for _, txn := range report.Accepted {
		if filter != nil && !filter(txn) {
			continue
		}
		line := fmt.Sprintf("%s | %-40s | %10s | %s",
			txn.DatePosted.UTC().Format("2006-01-02"),
			clip(txn.Description, 40),
			txn.Amount.StringFixed(2),
			txn.ID)
		if _, ok := inserted[txn.ID]; ok {
			fmt.Println(insertedStyle.Render("+ " + line))
		} else {
			fmt.Println(skippedStyle.Render("= " + line))
		}
	}
	for _, rowErr := range report.Rejected {
		fmt.Println(rejectedStyle.Render("! " + rowErr.Error()))
	}

	fmt.Printf("\n%d rows: %d inserted, %d skipped, %d rejected\n",
		report.RowCount, commit.Inserted, commit.Skipped, len(report.Rejected))
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
