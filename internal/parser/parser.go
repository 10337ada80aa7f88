package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/upi-statement-analyzer/internal/extractor"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

// Profile describes one statement layout.
type Profile struct {
	Source models.Source
	Name   string
	// Detect lists lowercase phrases that identify the layout in document text.
	Detect []string
	// Ledger layouts carry deposit, withdrawal and balance columns.
	Ledger bool
	// Templates are tried before the shared line templates.
	Templates []template
	// Header lists the column titles of the layout's transaction table.
	Header []string
}

var kotakTemplate = newTemplate("kotak-dr-cr",
	`^\s*(?P<date>\d{2}-\d{2}-\d{4})\s+(?P<desc>.+?)\s+(?P<amount>[\d,]+\.\d{2})\s*\((?P<type>(?i:dr|cr))\)`)

var profiles = map[models.Source]*Profile{
	models.SourceKotak: {
		Source:    models.SourceKotak,
		Name:      "Kotak Mahindra Bank",
		Detect:    []string{"kotak"},
		Templates: []template{kotakTemplate},
	},
	models.SourcePhonePe: {
		Source: models.SourcePhonePe,
		Name:   "PhonePe",
		Detect: []string{"phonepe", "phone pe", "statement of transactions"},
		Header: []string{"date", "transaction", "type", "amount"},
	},
	models.SourceCanara: {
		Source: models.SourceCanara,
		Name:   "Canara Bank",
		Detect: []string{"canara"},
		Ledger: true,
		Header: []string{"date", "particulars", "deposits", "withdrawals", "balance"},
	},
	models.SourceGeneric: {
		Source: models.SourceGeneric,
		Name:   "Generic statement",
	},
}

// ProfileFor returns the layout profile for src.
func ProfileFor(src models.Source) (*Profile, error) {
	p, ok := profiles[src]
	if !ok {
		return nil, fmt.Errorf("unsupported statement source: %q", src)
	}
	return p, nil
}

// Output is what one parse run produced.
type Output struct {
	Transactions []models.RawTransaction
	Lines        []models.DebugLine
}

// Parser turns extracted lines or table rows into raw transactions using
// one layout profile.
type Parser struct {
	profile *Profile
	debug   bool
}

// New returns a parser for src. With debug set, every input line is
// recorded in Output.Lines.
func New(src models.Source, debug bool) (*Parser, error) {
	p, err := ProfileFor(src)
	if err != nil {
		return nil, err
	}
	return &Parser{profile: p, debug: debug}, nil
}

// Profile returns the parser's layout profile.
func (p *Parser) Profile() *Profile { return p.profile }

// ParseLines extracts transactions from text lines in document order.
func (p *Parser) ParseLines(lines []string) *Output {
	if p.profile.Ledger {
		return p.parseLedger(lines)
	}

	out := &Output{}
	templates := append(append([]template{}, p.profile.Templates...), lineTemplates...)
	for i, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		dl := p.debugLine(i, line)

		if isNoise(line) {
			out.record(dl, "noise", "")
			continue
		}
		txn, ok := matchTemplates(templates, line)
		if !ok {
			out.record(dl, "skipped", "")
			continue
		}
		txn.Line = i + 1
		out.Transactions = append(out.Transactions, txn)
		out.record(dl, "parsed", txn.Method)
	}
	return out
}

// ParseRows extracts transactions from table rows.
func (p *Parser) ParseRows(rows []extractor.Row) *Output {
	switch p.profile.Source {
	case models.SourcePhonePe:
		return p.parseWalletRows(rows)
	case models.SourceCanara:
		return p.parseLedgerRows(rows)
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.String())
	}
	return p.ParseLines(lines)
}

func (p *Parser) debugLine(i int, line string) *models.DebugLine {
	if !p.debug {
		return nil
	}
	dl := &models.DebugLine{
		LineNum: i + 1,
		HasDate: dateToken.MatchString(line),
	}
	if len(line) > 120 {
		dl.Text = line[:120] + "..."
	} else {
		dl.Text = line
	}
	return dl
}

func (o *Output) record(dl *models.DebugLine, result, method string) {
	if dl == nil {
		return
	}
	dl.Result = result
	dl.Method = method
	o.Lines = append(o.Lines, *dl)
}

// AutoDetect identifies the statement layout from page text. Text that
// matches no profile is Generic.
func AutoDetect(pages []string) models.Source {
	combined := strings.ToLower(strings.Join(pages, "\n"))
	for _, src := range []models.Source{models.SourceKotak, models.SourcePhonePe, models.SourceCanara} {
		if containsAny(combined, profiles[src].Detect) {
			return src
		}
	}
	return models.SourceGeneric
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "\u200B", "")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	line = strings.ReplaceAll(line, "\t", " ")
	return strings.TrimSpace(line)
}

var counterpartyPattern = regexp.MustCompile(`(?i)\b(?:to|from)\s+([a-z0-9][a-z0-9.&'@_ -]*)`)

var counterpartyStop = map[string]bool{
	"on": true, "via": true, "ref": true, "upi": true, "using": true,
	"account": true, "a/c": true, "debit": true, "credit": true, "for": true,
}

// counterparty pulls the other party's name out of "to X" or "from X".
func counterparty(desc string) string {
	m := counterpartyPattern.FindStringSubmatch(desc)
	if m == nil {
		return ""
	}
	var words []string
	for _, w := range strings.Fields(m[1]) {
		if counterpartyStop[strings.ToLower(w)] || len(words) == 4 {
			break
		}
		words = append(words, w)
	}
	return strings.Trim(strings.Join(words, " "), " -.")
}
