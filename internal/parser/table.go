package parser

import (
	"math"
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/insightdelivered/upi-statement-analyzer/internal/extractor"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

var (
	walletDateCell = regexp.MustCompile(`^\s*(` + datePattern + `)(?:\s*,?\s*(` + timePattern + `))?\s*$`)
	timeCell       = regexp.MustCompile(`^\s*` + timePattern + `\s*$`)
	amountCell     = regexp.MustCompile(`\d[\d,]*(?:\.\d{1,2})?`)
	numericCell    = regexp.MustCompile(`^\s*[\d,]+(?:\.\d{1,2})?\s*$`)
)

// fuzzyWord reports whether any word of cell is within one edit of token.
// Extracted headers often lose or swap a single glyph.
func fuzzyWord(cell, token string) bool {
	for _, w := range strings.Fields(strings.ToLower(cell)) {
		w = strings.Trim(w, ".:()")
		if w == token || (len(token) > 3 && fuzzy.LevenshteinDistance(w, token) <= 1) {
			return true
		}
	}
	return false
}

// headerAnchors matches row against the header tokens in order, looking at
// the first limit cells (all cells when limit <= 0). It returns the X
// position of the cell matched by each token.
func headerAnchors(row extractor.Row, tokens []string, limit int) ([]float64, bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	cells := row
	if limit > 0 && len(cells) > limit {
		cells = cells[:limit]
	}
	anchors := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		found := false
		for _, c := range cells {
			if fuzzyWord(c.Text, tok) {
				anchors = append(anchors, c.X)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return anchors, true
}

// typeCell reads a DEBIT/CREDIT column, tolerating one damaged glyph.
func typeCell(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case lower == "":
		return ""
	case fuzzy.LevenshteinDistance(lower, "debit") <= 1:
		return models.TypeDebit
	case fuzzy.LevenshteinDistance(lower, "credit") <= 1:
		return models.TypeCredit
	}
	return normalizeType(lower)
}

// walletRow classifies cells as date, [time], description, [type], amount.
// A time in the second cell shifts the remaining columns by one.
func walletRow(row extractor.Row) (models.RawTransaction, bool) {
	if len(row) < 3 {
		return models.RawTransaction{}, false
	}
	m := walletDateCell.FindStringSubmatch(row[0].Text)
	if m == nil {
		return models.RawTransaction{}, false
	}
	raw := models.RawTransaction{Date: m[1], Time: m[2], Method: "table-wallet"}

	i := 1
	if timeCell.MatchString(row[1].Text) {
		raw.Time = strings.TrimSpace(row[1].Text)
		i = 2
	}
	if len(row) < i+2 {
		return models.RawTransaction{}, false
	}
	raw.Description = cleanDescription(row[i].Text)

	rest := row[i+1:]
	raw.Amount = amountCell.FindString(rest[len(rest)-1].Text)
	if raw.Amount == "" {
		return models.RawTransaction{}, false
	}
	if len(rest) >= 2 {
		raw.Type = typeCell(rest[0].Text)
	}
	if raw.Type == "" {
		raw.Polarity = polarity(row.String())
	}
	raw.Counterparty = counterparty(raw.Description)
	return raw, true
}

func (p *Parser) parseWalletRows(rows []extractor.Row) *Output {
	out := &Output{}
	for i, row := range rows {
		text := normalizeLine(row.String())
		if text == "" {
			continue
		}
		dl := p.debugLine(i, text)

		if _, ok := headerAnchors(row, p.profile.Header, 4); ok {
			out.record(dl, "header", "")
			continue
		}
		if txn, ok := walletRow(row); ok {
			txn.Line = i + 1
			out.Transactions = append(out.Transactions, txn)
			out.record(dl, "parsed", txn.Method)
			continue
		}
		// Rows the table backend could not split still read as text.
		if isNoise(text) {
			out.record(dl, "noise", "")
			continue
		}
		if txn, ok := ParseLine(text); ok {
			txn.Line = i + 1
			out.Transactions = append(out.Transactions, txn)
			out.record(dl, "parsed", txn.Method)
			continue
		}
		out.record(dl, "skipped", "")
	}
	return out
}

// Ledger table columns, in header order.
const (
	colDate = iota
	colParticulars
	colDeposits
	colWithdrawals
	colBalance
)

// nearest returns the index of the anchor closest to x.
func nearest(anchors []float64, x float64) int {
	best, dist := 0, math.Inf(1)
	for i, a := range anchors {
		if d := math.Abs(a - x); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// parseLedgerRows reads ledger tables by the X positions of the header
// cells. Rows seen before any header fall back to text reassembly.
func (p *Parser) parseLedgerRows(rows []extractor.Row) *Output {
	out := &Output{}
	var (
		anchors  []float64
		cur      *ledgerEntry
		loose    []string
		resolved []models.RawTransaction
	)
	flush := func() {
		if cur == nil {
			return
		}
		if txn, ok := cur.resolve(); ok {
			resolved = append(resolved, txn)
		}
		cur = nil
	}

	for i, row := range rows {
		text := normalizeLine(row.String())
		if text == "" {
			continue
		}
		dl := p.debugLine(i, text)

		if a, ok := headerAnchors(row, p.profile.Header, 0); ok {
			flush()
			anchors = a
			out.record(dl, "header", "")
			continue
		}
		if anchors == nil {
			loose = append(loose, text)
			continue
		}
		if balanceLine.MatchString(text) {
			flush()
			out.record(dl, "noise", "balance")
			continue
		}

		cols := make([]string, len(anchors))
		for _, c := range row {
			j := nearest(anchors, c.X)
			cols[j] = strings.TrimSpace(cols[j] + " " + c.Text)
		}

		if m := leadingDate.FindStringSubmatch(cols[colDate]); m != nil {
			flush()
			cur = newLedgerEntry(m[1], i+1, "table-ledger")
			cur.columns = true
			if cols[colParticulars] != "" {
				cur.desc = append(cur.desc, cols[colParticulars])
			}
			setLedgerColumns(cur, cols)
			out.record(dl, "parsed", cur.raw.Method)
			continue
		}
		if cur != nil && !isNoise(text) {
			if cols[colParticulars] != "" {
				cur.desc = append(cur.desc, cols[colParticulars])
			}
			if cur.raw.Deposits == "" && cur.raw.Withdrawals == "" && cur.raw.Balance == "" {
				setLedgerColumns(cur, cols)
			}
			out.record(dl, "continuation", "table-ledger")
			continue
		}
		out.record(dl, "skipped", "")
	}
	flush()

	if len(loose) > 0 {
		text := p.parseLedger(loose)
		out.Transactions = append(out.Transactions, text.Transactions...)
		out.Lines = append(out.Lines, text.Lines...)
	}
	out.Transactions = append(out.Transactions, resolved...)
	return out
}

func setLedgerColumns(e *ledgerEntry, cols []string) {
	pick := func(s string) string {
		if numericCell.MatchString(s) {
			return strings.TrimSpace(s)
		}
		return ""
	}
	e.raw.Deposits = pick(cols[colDeposits])
	e.raw.Withdrawals = pick(cols[colWithdrawals])
	e.raw.Balance = pick(cols[colBalance])
}
