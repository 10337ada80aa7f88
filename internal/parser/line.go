package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

// Building blocks shared by the line templates.
const (
	monthPattern = `(?:jan|feb|mar|apr|may|jun|jul|aug|sept|sep|oct|nov|dec)[a-z]*\.?`

	// Mon DD, YYYY | YYYY-MM-DD | DD-MM-YYYY, DD/MM/YYYY, DD.MM.YYYY | DD Mon YYYY, DD-Mon-YY
	datePattern = `(?i:` + monthPattern + `\s+\d{1,2},?\s+\d{4}` +
		`|\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}` +
		`|\d{1,2}[-\s]` + monthPattern + `[-\s,]+\d{2,4})`

	timePattern     = `(?i:\d{1,2}:\d{2}(?:\s*[ap]\.?m\.?)?)`
	currencyPattern = `(?:₹|(?i:\brs)\.?|(?i:\binr))`
	amountPattern   = `\d[\d,]*(?:\.\d{1,2})?`
	decimalPattern  = `\d[\d,]*\.\d{2}`
	suffixPattern   = `(?:\(?(?i:dr|cr)\)?)`
)

var (
	dateToken = regexp.MustCompile(`\b(` + datePattern + `)\b`)

	currencyToken = regexp.MustCompile(`(?:₹|(?i:\brs\b)\.?|(?i:\binr\b))`)
	spaceRun      = regexp.MustCompile(`\s+`)

	// dr and cr are too short to match as substrings.
	shortPolarity = regexp.MustCompile(`(?i)\b(dr|cr)\b`)
)

// template is one line pattern. Patterns use the named groups date, time,
// type, amount and optionally desc and balance; only date and amount are
// required.
type template struct {
	name string
	re   *regexp.Regexp
}

func newTemplate(name, pattern string) template {
	return template{name: name, re: regexp.MustCompile(pattern)}
}

// Shared templates, most specific first.
var lineTemplates = []template{
	newTemplate("date-type-currency",
		`\b(?P<date>`+datePattern+`)\b(?:\s*,?\s*(?:at\s+)?(?P<time>`+timePattern+`))?`+
			`.*?\b(?P<type>DEBIT|CREDIT)\b.*?`+currencyPattern+`\s*(?P<amount>`+amountPattern+`)`),
	newTemplate("date-time-currency",
		`\b(?P<date>`+datePattern+`)\b\s*,?\s*(?:at\s+)?(?P<time>`+timePattern+`)`+
			`.*?`+currencyPattern+`\s*(?P<amount>`+amountPattern+`)`),
	newTemplate("date-currency",
		`\b(?P<date>`+datePattern+`)\b.*?`+currencyPattern+`\s*(?P<amount>`+amountPattern+`)`),
	// Two trailing decimal amounts are (amount, running balance).
	newTemplate("date-amount-balance",
		`\b(?P<date>`+datePattern+`)\b\s+.*?\b(?P<amount>`+decimalPattern+`)\s*(?:\(?(?P<type>(?i:dr|cr))\)?)?`+
			`\s+(?P<balance>`+decimalPattern+`)\s*(?P<suffix>`+suffixPattern+`)?\s*$`),
	newTemplate("date-amount",
		`\b(?P<date>`+datePattern+`)\b\s+.*?\b(?P<amount>`+amountPattern+`)\s*(?:\(?(?P<type>(?i:dr|cr))\)?)?\s*$`),
}

// Lines carrying any of these are document furniture, not transactions.
var noiseTokens = []string{
	"statement",
	"page",
	"transaction id",
	"opening balance",
	"closing balance",
}

var (
	debitKeywords  = []string{"paid", "payment", "sent", "debit", "withdraw"}
	creditKeywords = []string{"received", "refund", "cashback", "credit"}
)

// isNoise reports whether a line is boilerplate.
func isNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, tok := range noiseTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// polarity infers direction from keywords anywhere in text. Debit
// keywords win when both sets are present.
func polarity(text string) models.Polarity {
	lower := strings.ToLower(text)
	var debit, credit bool
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			debit = true
			break
		}
	}
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			credit = true
			break
		}
	}
	for _, m := range shortPolarity.FindAllStringSubmatch(lower, -1) {
		if m[1] == "dr" {
			debit = true
		} else {
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

// normalizeType maps an explicit type token to DEBIT or CREDIT.
func normalizeType(tok string) string {
	switch strings.ToLower(strings.Trim(tok, "() ")) {
	case "debit", "dr", "d":
		return models.TypeDebit
	case "credit", "cr", "c":
		return models.TypeCredit
	default:
		return ""
	}
}

// ParseLine runs the shared templates against one line.
func ParseLine(line string) (models.RawTransaction, bool) {
	return matchTemplates(lineTemplates, line)
}

func matchTemplates(templates []template, line string) (models.RawTransaction, bool) {
	for _, t := range templates {
		if raw, ok := t.match(line); ok {
			return raw, true
		}
	}
	return models.RawTransaction{}, false
}

func (t template) match(line string) (models.RawTransaction, bool) {
	idx := t.re.FindStringSubmatchIndex(line)
	if idx == nil {
		return models.RawTransaction{}, false
	}
	group := func(name string) (string, []int) {
		i := t.re.SubexpIndex(name)
		if i < 0 || idx[2*i] < 0 {
			return "", nil
		}
		span := idx[2*i : 2*i+2]
		return line[span[0]:span[1]], span
	}

	raw := models.RawTransaction{Method: t.name}
	var spans [][]int
	for _, name := range []string{"date", "time", "type", "amount", "balance", "suffix"} {
		val, span := group(name)
		if span == nil {
			continue
		}
		spans = append(spans, span)
		switch name {
		case "date":
			raw.Date = val
		case "time":
			raw.Time = strings.TrimSpace(val)
		case "type":
			raw.Type = normalizeType(val)
		case "amount":
			raw.Amount = val
		case "balance":
			raw.Balance = val
		}
	}
	if raw.Date == "" || raw.Amount == "" {
		return models.RawTransaction{}, false
	}

	if desc, _ := group("desc"); desc != "" {
		raw.Description = cleanDescription(desc)
	} else {
		raw.Description = cleanDescription(cut(line, spans))
	}
	if raw.Type == "" {
		raw.Polarity = polarity(line)
	}
	raw.Counterparty = counterparty(raw.Description)
	return raw, true
}

// cut removes the given byte spans from s.
func cut(s string, spans [][]int) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		if sp[0] < prev {
			continue
		}
		b.WriteString(s[prev:sp[0]])
		b.WriteByte(' ')
		prev = sp[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

func cleanDescription(s string) string {
	s = currencyToken.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "()", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " -|:,")
}
