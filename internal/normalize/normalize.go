// Package normalize turns raw extracted strings into canonical transactions:
// dates, decimal amounts and a resolved sign.
package normalize

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

type cachedDate struct {
	t  time.Time
	ok bool
}

// Normalizer converts raw transactions. It is safe for concurrent use;
// parsed dates are memoized in a bounded LRU cache keyed by the raw string.
type Normalizer struct {
	// Now supplies the fallback timestamp for unparseable dates.
	Now func() time.Time

	dates *lru.Cache[string, cachedDate]
}

// New returns a Normalizer whose date cache holds up to cacheSize entries.
func New(cacheSize int) (*Normalizer, error) {
	cache, err := lru.New[string, cachedDate](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("date cache: %w", err)
	}
	return &Normalizer{Now: time.Now, dates: cache}, nil
}

// ParseDate parses a statement date, optionally with a time of day. When
// nothing parses it returns the current time and false.
func (n *Normalizer) ParseDate(date, clock string) (time.Time, bool) {
	if clock != "" {
		if t, ok := n.lookup(date + " " + clock); ok {
			return t, true
		}
	}
	if t, ok := n.lookup(date); ok {
		return t, true
	}
	return n.Now(), false
}

func (n *Normalizer) lookup(s string) (time.Time, bool) {
	if c, ok := n.dates.Get(s); ok {
		return c.t, c.ok
	}
	t, ok := parseDate(s)
	n.dates.Add(s, cachedDate{t: t, ok: ok})
	return t, ok
}

// Transaction normalizes one raw transaction. The sign comes from, in
// order: ledger columns, the explicit type token, keyword polarity, and
// finally a credit default recorded as SignDefault.
func (n *Normalizer) Transaction(raw models.RawTransaction) models.Transaction {
	date, ok := n.ParseDate(raw.Date, raw.Time)
	txn := models.Transaction{
		Date:         date,
		DateFallback: !ok,
		Description:  raw.Description,
		Counterparty: raw.Counterparty,
		Type:         raw.Type,
		ParseMethod:  raw.Method,
	}

	if raw.Ledger && raw.Balance != "" {
		bal := ParseAmount(raw.Balance)
		txn.Balance = &bal
	}
	if raw.Ledger && (raw.Deposits != "" || raw.Withdrawals != "" || raw.Amount == "") {
		dep := ParseAmount(raw.Deposits)
		wd := ParseAmount(raw.Withdrawals)
		txn.Deposits, txn.Withdrawals = &dep, &wd
		if dep.IsPositive() {
			txn.Amount = dep
		} else {
			txn.Amount = wd.Neg()
		}
		txn.SignSource = models.SignColumn
		return txn
	}

	amount := ParseAmount(raw.Amount).Abs()
	switch {
	case raw.Type == models.TypeDebit:
		txn.Amount, txn.SignSource = amount.Neg(), models.SignType
	case raw.Type == models.TypeCredit:
		txn.Amount, txn.SignSource = amount, models.SignType
	case raw.Polarity == models.PolarityDebit:
		txn.Amount, txn.SignSource = amount.Neg(), models.SignKeyword
	case raw.Polarity == models.PolarityCredit:
		txn.Amount, txn.SignSource = amount, models.SignKeyword
	default:
		txn.Amount, txn.SignSource = amount, models.SignDefault
	}
	return txn
}
