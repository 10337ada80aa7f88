package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

const dateLayout = "2006-01-02"

// Row is one exported transaction.
type Row struct {
	Date         string `csv:"Date"`
	Description  string `csv:"Description"`
	Counterparty string `csv:"Counterparty"`
	Type         string `csv:"Type"`
	Amount       string `csv:"Amount"`
	Balance      string `csv:"Balance"`
	Category     string `csv:"Category"`
}

// Rows flattens transactions for export. Multi-line ledger particulars are
// joined with spaces.
func Rows(txns []models.Transaction) []Row {
	rows := make([]Row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, Row{
			Date:         t.Date.Format(dateLayout),
			Description:  flatten(t.Description),
			Counterparty: t.Counterparty,
			Type:         direction(t),
			Amount:       t.Amount.StringFixed(2),
			Balance:      formatBalance(t.Balance),
			Category:     t.Category,
		})
	}
	return rows
}

// CSVWriter writes transactions in CSV format.
type CSVWriter struct {
	// IncludeHeader adds "# key,value" metadata rows before the column header.
	IncludeHeader bool
}

// WriteToFile writes the result to a CSV file at path.
func (w *CSVWriter) WriteToFile(path string, res *models.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, res)
}

// Write writes the result's transactions to out.
func (w *CSVWriter) Write(out io.Writer, res *models.Result) error {
	if w.IncludeHeader {
		meta := csv.NewWriter(out)
		meta.Write([]string{"# Source", string(res.Source)})
		meta.Write([]string{"# Pages", strconv.Itoa(res.PageCount)})
		if res.Diagnostics.ExtractionMethod != "" {
			meta.Write([]string{"# Extraction", res.Diagnostics.ExtractionMethod})
		}
		if res.RequestID != "" {
			meta.Write([]string{"# Request", res.RequestID})
		}
		meta.Flush()
		if err := meta.Error(); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	if err := gocsv.Marshal(Rows(res.Transactions), out); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func direction(t models.Transaction) string {
	if t.Type != "" {
		return t.Type
	}
	switch {
	case t.Amount.IsNegative():
		return models.TypeDebit
	case t.Amount.IsPositive():
		return models.TypeCredit
	}
	return ""
}

func formatBalance(b *decimal.Decimal) string {
	if b == nil {
		return ""
	}
	return b.StringFixed(2)
}
