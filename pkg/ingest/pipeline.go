// Package ingest streams heterogeneous bank export files through the
// mapping-driven row builder and collects canonical transactions plus
// per-row errors. One bad row never discards the rest of a file.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rfigueroa/bankfeed/pkg/mapping"
	"github.com/rfigueroa/bankfeed/pkg/models"
)

// ImportReport is the outcome of one file. Accepted preserves source row
// order; the dedup engine relies on that for its occurrence tie-break.
type ImportReport struct {
	Accepted []*models.Transaction
	Rejected []RowError
	RowCount int
}

// Pipeline resolves an institution's mapping once and applies the builder
// to every row of a statement.
type Pipeline struct {
	registry *mapping.Registry
	logger   *log.Logger
}

func New(registry *mapping.Registry, logger *log.Logger) *Pipeline {
	return &Pipeline{registry: registry, logger: logger}
}

// Ingest processes a CSV byte stream with a header row. An unresolvable
// institution fails the whole import; everything after that is per-row.
func (p *Pipeline) Ingest(source io.Reader, accountID, institutionID string) (*ImportReport, error) {
	mappings, err := p.registry.Resolve(institutionID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("statement is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	report := &ImportReport{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.RowCount++
		if err != nil {
			p.logger.Debug("malformed row", "row", report.RowCount, "err", err)
			report.Rejected = append(report.Rejected, RowError{Row: report.RowCount, Kind: BadRow, Err: err})
			continue
		}
		p.digest(report, header, record, accountID, mappings)
	}

	p.logger.Info("ingested statement",
		"institution", institutionID,
		"account", accountID,
		"rows", report.RowCount,
		"accepted", len(report.Accepted),
		"rejected", len(report.Rejected))
	return report, nil
}

// IngestBytes dispatches on the filename: .xls workbooks go through the
// sheet reader, anything else is treated as CSV.
func (p *Pipeline) IngestBytes(data []byte, filename, accountID, institutionID string) (*ImportReport, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xls") {
		return p.ingestXLS(data, accountID, institutionID)
	}
	return p.Ingest(bytes.NewReader(data), accountID, institutionID)
}

func (p *Pipeline) ingestXLS(data []byte, accountID, institutionID string) (*ImportReport, error) {
	mappings, err := p.registry.Resolve(institutionID)
	if err != nil {
		return nil, err
	}

	rows, err := readWorkbook(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("statement is empty")
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	report := &ImportReport{}
	for _, record := range rows[1:] {
		report.RowCount++
		p.digest(report, header, record, accountID, mappings)
	}

	p.logger.Info("ingested workbook",
		"institution", institutionID,
		"account", accountID,
		"rows", report.RowCount,
		"accepted", len(report.Accepted),
		"rejected", len(report.Rejected))
	return report, nil
}

// digest builds one row and files it under accepted or rejected.
func (p *Pipeline) digest(report *ImportReport, header, record []string, accountID string, mappings []models.FieldMapping) {
	rawRow := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		rawRow[name] = record[i]
	}

	txn, rowErr := Build(rawRow, mappings)
	if rowErr != nil {
		rowErr.Row = report.RowCount
		report.Rejected = append(report.Rejected, *rowErr)
		return
	}

	txn.AccountID = accountID
	if !txn.DatePending.Equal(models.NullDate) && !txn.DatePosted.Equal(models.NullDate) &&
		txn.DatePending.After(txn.DatePosted) {
		// Banks occasionally emit this; warn, do not reject.
		p.logger.Warn("pending date after posted date",
			"row", report.RowCount, "pending", txn.DatePending, "posted", txn.DatePosted)
	}
	report.Accepted = append(report.Accepted, txn)
}
