// Package categorize assigns every transaction exactly one label from a
// fixed taxonomy using ordered keyword rules.
package categorize

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

// Amounts above this with no keyword match are treated as income or loan
// activity rather than everyday spending.
var largeAmount = decimal.NewFromInt(10000)

// shortcut is a high-precision keyword checked before the taxonomy scan.
type shortcut struct {
	keywords []string
	category string
}

var globalShortcuts = []shortcut{
	{[]string{"salary"}, Income},
	{[]string{"emi", "loan"}, EMILoans},
}

// Ledger statements from Canara carry terse transfer codes in particulars.
var canaraShortcuts = []shortcut{
	{[]string{"salary"}, Income},
	{[]string{"swiggy", "zomato", "restaurant"}, FoodDining},
	{[]string{"upi", "imps", "neft"}, Transfer},
	{[]string{"atm", "cash withdrawal"}, Transfer},
	{[]string{"pos"}, Shopping},
	{[]string{"emi", "loan"}, EMILoans},
}

var incomeHints = []string{"received", "refund", "cashback"}

type cacheKey struct {
	source      models.Source
	description string
	amount      string
}

// Categorizer maps (description, amount) to a category. It is safe for
// concurrent use; results are memoized in a bounded LRU cache.
type Categorizer struct {
	mu       sync.Mutex // the matcher keeps per-call state
	matcher  *ahocorasick.Matcher
	patterns []int // pattern index -> taxonomy index
	cache    *lru.Cache[cacheKey, string]
}

// New builds the keyword index. cacheSize bounds the memo.
func New(cacheSize int) (*Categorizer, error) {
	cache, err := lru.New[cacheKey, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("category cache: %w", err)
	}

	seen := make(map[string]bool)
	var (
		patterns [][]byte
		owners   []int
	)
	for i, r := range taxonomy {
		for _, kw := range r.keywords {
			p := pattern(kw)
			if seen[p] {
				continue
			}
			seen[p] = true
			patterns = append(patterns, []byte(p))
			owners = append(owners, i)
		}
	}

	return &Categorizer{
		matcher:  ahocorasick.NewMatcher(patterns),
		patterns: owners,
		cache:    cache,
	}, nil
}

// Categorize returns the category for one transaction. It never returns
// an empty string.
func (c *Categorizer) Categorize(src models.Source, description string, amount decimal.Decimal) string {
	key := cacheKey{source: src, description: description, amount: amount.String()}
	if cat, ok := c.cache.Get(key); ok {
		return cat
	}
	cat := c.categorize(src, description, amount)
	c.cache.Add(key, cat)
	return cat
}

func (c *Categorizer) categorize(src models.Source, description string, amount decimal.Decimal) string {
	text := normalizeText(description)

	shortcuts := globalShortcuts
	if src == models.SourceCanara {
		shortcuts = canaraShortcuts
	}
	for _, s := range shortcuts {
		if containsAnyKeyword(text, s.keywords) {
			return s.category
		}
	}

	if cat, ok := c.match(text); ok {
		return cat
	}

	if containsAnyKeyword(text, incomeHints) {
		return Income
	}
	if amount.Abs().GreaterThan(largeAmount) {
		if amount.IsPositive() {
			return Income
		}
		return EMILoans
	}
	return Others
}

// match returns the earliest taxonomy category with a keyword in text.
func (c *Categorizer) match(text string) (string, bool) {
	c.mu.Lock()
	hits := c.matcher.Match([]byte(text))
	c.mu.Unlock()

	best := -1
	for _, h := range hits {
		if h < 0 || h >= len(c.patterns) {
			continue
		}
		if owner := c.patterns[h]; best < 0 || owner < best {
			best = owner
		}
	}
	if best < 0 {
		return "", false
	}
	return taxonomy[best].category, true
}

// normalizeText lowercases s, turns every non-alphanumeric rune into a
// single space and pads both ends so whole-word patterns can match at the
// edges.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// pattern is the form a keyword takes in normalized text.
func pattern(kw string) string {
	p := strings.TrimSpace(normalizeText(kw))
	if wholeWord(kw) {
		return " " + p + " "
	}
	return p
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, pattern(kw)) {
			return true
		}
	}
	return false
}
