package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/upi-statement-analyzer/internal/aggregate"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
)

// XLSXWriter writes an analysis as a workbook with a Transactions sheet and
// a Summary sheet.
type XLSXWriter struct{}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, a models.Analysis) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, a)
}

// Write writes the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, a models.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeTransactions(f, a.Transactions); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, a.Summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, txns []models.Transaction) error {
	header := []interface{}{"Date", "Description", "Counterparty", "Type", "Amount", "Balance", "Category"}
	if err := f.SetSheetRow(transactionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range txns {
		row := []interface{}{
			t.Date.Format(dateLayout),
			flatten(t.Description),
			t.Counterparty,
			direction(t),
			t.Amount.InexactFloat64(),
			nil,
			t.Category,
		}
		if t.Balance != nil {
			row[5] = t.Balance.InexactFloat64()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s models.Summary) error {
	rows := [][]interface{}{
		{"Total spent", s.TotalSpent.InexactFloat64()},
		{"Total received", s.TotalReceived.InexactFloat64()},
		{"Net flow", s.NetFlow.InexactFloat64()},
		{"Transactions", s.TotalTransactions},
		{"Debits", s.DebitCount},
		{"Credits", s.CreditCount},
		{"Highest amount", s.HighestAmount.InexactFloat64()},
		{"Lowest amount", s.LowestAmount.InexactFloat64()},
	}
	if s.ClosingBalance != nil {
		rows = append(rows, []interface{}{"Closing balance", s.ClosingBalance.InexactFloat64()})
	}
	if s.Period != nil {
		rows = append(rows, []interface{}{"Period", s.Period.From.Format(dateLayout) + " to " + s.Period.To.Format(dateLayout)})
	}

	rows = append(rows, nil, []interface{}{"Category", "Amount", "Count", "Percentage"})
	for _, e := range aggregate.Sorted(s.CategoryBreakdown) {
		rows = append(rows, []interface{}{e.Category, e.Amount.InexactFloat64(), e.Count, e.Percentage})
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}
