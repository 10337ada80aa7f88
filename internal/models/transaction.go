package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a normalized, categorized statement entry.
type Transaction struct {
	Date         time.Time        `json:"date"`
	DateFallback bool             `json:"dateFallback,omitempty"` // date could not be parsed, Date is the parse time
	Description  string           `json:"description"`
	Counterparty string           `json:"counterparty,omitempty"`
	Type         string           `json:"type,omitempty"` // DEBIT or CREDIT when the statement states it
	Amount       decimal.Decimal  `json:"amount"`
	Deposits     *decimal.Decimal `json:"deposits,omitempty"`
	Withdrawals  *decimal.Decimal `json:"withdrawals,omitempty"`
	Balance      *decimal.Decimal `json:"balance,omitempty"`
	Category     string           `json:"category"`
	SignSource   string           `json:"signSource"`
	ParseMethod  string           `json:"parseMethod,omitempty"` // debug: which template or row layout matched
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// Explicit type labels.
const (
	TypeDebit  = "DEBIT"
	TypeCredit = "CREDIT"
)

// Sign sources recorded on Transaction.SignSource.
const (
	SignColumn  = "column"
	SignType    = "type"
	SignKeyword = "keyword"
	SignDefault = "default"
)

// Polarity is the direction of a raw transaction before normalization.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityDebit
	PolarityCredit
)

func (p Polarity) String() string {
	switch p {
	case PolarityDebit:
		return "debit"
	case PolarityCredit:
		return "credit"
	default:
		return "unknown"
	}
}

// RawTransaction is what the line and row extractors emit: strings exactly
// as found in the document plus whatever polarity signal was seen.
type RawTransaction struct {
	Date         string
	Time         string
	Description  string
	Counterparty string
	Amount       string
	Type         string   // explicit DEBIT/CREDIT token, empty when absent
	Polarity     Polarity // keyword-inferred polarity when Type is empty

	// Ledger statements carry magnitudes in separate columns.
	Ledger      bool
	Deposits    string
	Withdrawals string
	Balance     string

	Method string
	Line   int
}

// Source identifies a statement layout.
type Source string

const (
	SourceGeneric Source = "generic"
	SourceKotak   Source = "kotak"
	SourcePhonePe Source = "phonepe"
	SourceCanara  Source = "canara"
)

// Sources lists every supported layout.
var Sources = []Source{SourceKotak, SourcePhonePe, SourceCanara, SourceGeneric}

// ParseSource maps a user-supplied hint to a Source. An empty hint is Generic.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "generic", "auto":
		return SourceGeneric, nil
	case "kotak", "kotak mahindra", "kotakbank":
		return SourceKotak, nil
	case "phonepe", "phone pe", "phone-pe":
		return SourcePhonePe, nil
	case "canara", "canara bank", "canarabank":
		return SourceCanara, nil
	default:
		return "", fmt.Errorf("unknown statement source %q (use kotak, phonepe, canara or generic)", s)
	}
}

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	HasDate bool   `json:"hasDate"`
	Result  string `json:"result"` // "parsed", "skipped", "noise", "continuation", "header"
	Method  string `json:"method,omitempty"`
}
