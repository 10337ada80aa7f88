package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the output of one analysis request.
type Result struct {
	RequestID    string        `json:"requestId"`
	Source       Source        `json:"source"`
	Transactions []Transaction `json:"transactions"`
	PageCount    int           `json:"pageCount"`
	Diagnostics  Diagnostics   `json:"diagnostics"`
}

// Diagnostics records how the document was read. It is filled even when no
// transactions were found.
type Diagnostics struct {
	PagesProcessed         int         `json:"pagesProcessed"`
	LinesPerPage           []int       `json:"linesPerPage"`
	TablesFound            int         `json:"tablesFound"`
	ExtractionMethodsTried []string    `json:"extractionMethodsTried"`
	ExtractionMethod       string      `json:"extractionMethod,omitempty"`
	Errors                 []string    `json:"errors"`
	DateFallbacks          int         `json:"dateFallbacks"`
	UnsignedDefaults       int         `json:"unsignedDefaults"`
	Elapsed                string      `json:"elapsed,omitempty"`
	Lines                  []DebugLine `json:"debugLines,omitempty"`
}

// CategoryTotal is one entry of the category breakdown.
type CategoryTotal struct {
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// Period is the date range covered by the transactions.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Summary holds the derived statistics for a transaction list.
type Summary struct {
	TotalSpent         decimal.Decimal          `json:"totalSpent"`
	TotalReceived      decimal.Decimal          `json:"totalReceived"`
	NetFlow            decimal.Decimal          `json:"netFlow"`
	CreditCount        int                      `json:"creditCount"`
	DebitCount         int                      `json:"debitCount"`
	TotalTransactions  int                      `json:"totalTransactions"`
	HighestAmount      decimal.Decimal          `json:"highestAmount"`
	LowestAmount       decimal.Decimal          `json:"lowestAmount"`
	HighestTransaction *Transaction             `json:"highestTransaction"`
	LowestTransaction  *Transaction             `json:"lowestTransaction"`
	ClosingBalance     *decimal.Decimal         `json:"closingBalance,omitempty"`
	Period             *Period                  `json:"period,omitempty"`
	CategoryBreakdown  map[string]CategoryTotal `json:"categoryBreakdown"`
}

// Analysis is a Result together with its Summary.
type Analysis struct {
	*Result
	Summary Summary `json:"summary"`
}
