// Package aggregate derives summary statistics from categorized
// transactions. Everything here is pure.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/categorize"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Summarize computes totals, counts, extremes and the category breakdown.
// An empty list yields a zero summary with an empty breakdown.
func Summarize(txns []models.Transaction) models.Summary {
	s := models.Summary{
		TotalSpent:        decimal.Zero,
		TotalReceived:     decimal.Zero,
		NetFlow:           decimal.Zero,
		HighestAmount:     decimal.Zero,
		LowestAmount:      decimal.Zero,
		TotalTransactions: len(txns),
		CategoryBreakdown: Breakdown(txns),
	}

	highest, lowest := -1, -1
	for i := range txns {
		t := &txns[i]
		switch {
		case t.Amount.IsNegative():
			s.TotalSpent = s.TotalSpent.Add(t.Amount)
			s.DebitCount++
		case t.Amount.IsPositive():
			s.TotalReceived = s.TotalReceived.Add(t.Amount)
			s.CreditCount++
		}

		// Strict comparisons keep the first of equal magnitudes.
		abs := t.Amount.Abs()
		if highest < 0 || abs.GreaterThan(txns[highest].Amount.Abs()) {
			highest = i
		}
		if !abs.IsZero() && (lowest < 0 || abs.LessThan(txns[lowest].Amount.Abs())) {
			lowest = i
		}

		if t.Balance != nil {
			bal := *t.Balance
			s.ClosingBalance = &bal
		}
		if !t.DateFallback {
			s.Period = widen(s.Period, t)
		}
	}
	s.NetFlow = s.TotalReceived.Add(s.TotalSpent)

	if highest >= 0 && !txns[highest].Amount.IsZero() {
		h := txns[highest]
		s.HighestTransaction = &h
		s.HighestAmount = h.Amount.Abs()
	}
	if lowest >= 0 {
		l := txns[lowest]
		s.LowestTransaction = &l
		s.LowestAmount = l.Amount.Abs()
	}
	return s
}

func widen(p *models.Period, t *models.Transaction) *models.Period {
	if p == nil {
		return &models.Period{From: t.Date, To: t.Date}
	}
	if t.Date.Before(p.From) {
		p.From = t.Date
	}
	if t.Date.After(p.To) {
		p.To = t.Date
	}
	return p
}

// Breakdown sums absolute amounts and counts per category. Percentages are
// shares of the absolute total, or 0 when that total is 0.
func Breakdown(txns []models.Transaction) map[string]models.CategoryTotal {
	out := make(map[string]models.CategoryTotal)
	total := decimal.Zero
	for _, t := range txns {
		cat := t.Category
		if cat == "" {
			cat = categorize.Others
		}
		ct := out[cat]
		ct.Amount = ct.Amount.Add(t.Amount.Abs())
		ct.Count++
		out[cat] = ct
		total = total.Add(t.Amount.Abs())
	}
	for cat, ct := range out {
		if total.IsPositive() {
			ct.Percentage = ct.Amount.Div(total).Mul(hundred).InexactFloat64()
		}
		out[cat] = ct
	}
	return out
}

// Entry is one category of a breakdown.
type Entry struct {
	Category string
	models.CategoryTotal
}

// Sorted orders a breakdown by amount descending, then by taxonomy order.
func Sorted(b map[string]models.CategoryTotal) []Entry {
	out := make([]Entry, 0, len(b))
	for cat, ct := range b {
		out = append(out, Entry{Category: cat, CategoryTotal: ct})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		ri, rj := categorize.Rank(out[i].Category), categorize.Rank(out[j].Category)
		if ri != rj {
			return ri < rj
		}
		return out[i].Category < out[j].Category
	})
	return out
}
