package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

var (
	// DD-MM-YYYY, DD/MM/YYYY, DD.MM.YYYY or DD-Mon-YY at the start of a line.
	leadingDate = regexp.MustCompile(`^(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|(?i:\d{1,2}[-\s]` + monthPattern + `[-\s]\d{2,4}))\b`)

	numericLine     = regexp.MustCompile(`^[\d,]+\.\d{2}$`)
	trailingNumbers = regexp.MustCompile(`(?:\s+[\d,]+\.\d{2})+\s*$`)

	balanceLine  = regexp.MustCompile(`(?i)opening\s+balance|closing\s+balance|balance\s*\(?b/[fd]\)?`)
	openingLine  = regexp.MustCompile(`(?i)opening\s+balance|balance\s*\(?b/f\)?`)
	ledgerSignal = regexp.MustCompile(`(?i)\b(cr|dr)\b|credit|received|deposit|debit|paid|withdraw`)

	// Particulars naming a transfer channel mark a lone number as money out.
	transferChannel = regexp.MustCompile(`(?i)\b(?:cash|transfer|neft|rtgs|imps|upi|cheque|chq|withdrawal|deposit)\b`)
)

// ledgerEntry accumulates one ledger transaction across lines.
type ledgerEntry struct {
	raw     models.RawTransaction
	desc    []string
	numbers []string
	// gap is set when particulars follow a numeric line; the next number
	// starts a new (amount, balance) group.
	gap bool
	// columns is set when deposits, withdrawals and balance came from
	// positioned table cells rather than bare numeric lines.
	columns bool
}

func newLedgerEntry(date string, line int, method string) *ledgerEntry {
	return &ledgerEntry{raw: models.RawTransaction{
		Date:   date,
		Ledger: true,
		Line:   line,
		Method: method,
	}}
}

// ledgerPolarity looks for CR/DR, credit/debit, deposit/withdrawal and
// received/paid markers. Debit markers win.
func ledgerPolarity(text string) models.Polarity {
	var debit, credit bool
	for _, m := range ledgerSignal.FindAllStringSubmatch(text, -1) {
		switch strings.ToLower(m[0]) {
		case "dr", "debit", "paid", "withdraw":
			debit = true
		default:
			credit = true
		}
	}
	switch {
	case debit:
		return models.PolarityDebit
	case credit:
		return models.PolarityCredit
	default:
		return models.PolarityUnknown
	}
}

// resolve turns the accumulated lines into a raw transaction. Numeric lines
// are positional: two are (amount, balance), three are (deposits,
// withdrawals, balance). A single number is a deposit or withdrawal when the
// particulars say so or name a transfer channel, and is otherwise taken as
// the balance. An unsigned pair keeps its amount for inferLedgerDirection.
func (e *ledgerEntry) resolve() (models.RawTransaction, bool) {
	raw := e.raw
	raw.Description = joinParticulars(e.desc)
	raw.Counterparty = counterparty(raw.Description)
	if e.columns {
		if raw.Deposits == "" && raw.Withdrawals == "" && raw.Balance == "" {
			return raw, false
		}
		return raw, true
	}

	nums := e.numbers
	pol := ledgerPolarity(raw.Description)
	switch len(nums) {
	case 0:
		return raw, false
	case 1:
		switch pol {
		case models.PolarityCredit:
			raw.Deposits = nums[0]
		case models.PolarityDebit:
			raw.Withdrawals = nums[0]
		default:
			if transferChannel.MatchString(raw.Description) {
				raw.Withdrawals = nums[0]
			} else {
				raw.Balance = nums[0]
			}
		}
	case 2:
		raw.Balance = nums[1]
		switch pol {
		case models.PolarityCredit:
			raw.Deposits = nums[0]
		case models.PolarityDebit:
			raw.Withdrawals = nums[0]
		default:
			raw.Amount = nums[0]
		}
	default:
		n := nums[len(nums)-3:]
		raw.Deposits, raw.Withdrawals, raw.Balance = n[0], n[1], n[2]
	}
	return raw, true
}

func joinParticulars(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = cleanDescription(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "\n")
}

// parseLedger reassembles multi-line ledger transactions. A transaction
// starts at a line with a leading date; following lines are particulars
// until the next date line, except pure numeric lines which carry the
// amount and balance.
func (p *Parser) parseLedger(lines []string) *Output {
	out := &Output{}
	var (
		cur     *ledgerEntry
		opening string
	)
	flush := func() {
		if cur == nil {
			return
		}
		if txn, ok := cur.resolve(); ok {
			out.Transactions = append(out.Transactions, txn)
		}
		cur = nil
	}

	for i, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		dl := p.debugLine(i, line)

		switch {
		case balanceLine.MatchString(line):
			flush()
			if openingLine.MatchString(line) && opening == "" {
				opening = lastNumber(line)
			}
			out.record(dl, "noise", "balance")
		case isLedgerHeader(line):
			out.record(dl, "header", "")
		case leadingDate.MatchString(line):
			flush()
			m := leadingDate.FindStringSubmatch(line)
			cur = newLedgerEntry(m[1], i+1, "ledger")
			rest := strings.TrimSpace(line[len(m[0]):])
			if loc := trailingNumbers.FindStringIndex(" " + rest); loc != nil {
				cur.numbers = strings.Fields((" " + rest)[loc[0]:])
				rest = strings.TrimSpace((" " + rest)[:loc[0]])
				cur.raw.Method = "ledger-single-line"
			}
			if rest != "" {
				cur.desc = append(cur.desc, rest)
			}
			out.record(dl, "parsed", cur.raw.Method)
		case cur != nil && numericLine.MatchString(line):
			if cur.gap {
				cur.numbers, cur.gap = nil, false
			}
			cur.numbers = append(cur.numbers, line)
			out.record(dl, "amount", "ledger")
		case cur != nil && !isNoise(line):
			cur.desc = append(cur.desc, line)
			cur.gap = len(cur.numbers) > 0
			out.record(dl, "continuation", "ledger")
		default:
			out.record(dl, "skipped", "")
		}
	}
	flush()

	inferLedgerDirection(out.Transactions, opening)
	return out
}

func isLedgerHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "particulars") &&
		(strings.Contains(lower, "balance") || strings.Contains(lower, "deposit"))
}

func lastNumber(line string) string {
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if numericLine.MatchString(fields[i]) {
			return fields[i]
		}
	}
	return ""
}

func ledgerDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	return d, err == nil
}

// inferLedgerDirection settles amounts whose column is unknown by
// comparing the running balance with the previous one. Amounts the balance
// cannot settle are withdrawals.
func inferLedgerDirection(txns []models.RawTransaction, opening string) {
	prev, hasPrev := ledgerDecimal(opening)
	for i := range txns {
		t := &txns[i]
		bal, hasBal := ledgerDecimal(t.Balance)
		if t.Amount != "" && t.Deposits == "" && t.Withdrawals == "" {
			amt, ok := ledgerDecimal(t.Amount)
			if ok && hasBal && hasPrev && bal.Sub(prev).Equal(amt) {
				t.Deposits = t.Amount
			} else {
				t.Withdrawals = t.Amount
			}
			t.Amount = ""
		}
		if hasBal {
			prev, hasPrev = bal, true
		}
	}
}
