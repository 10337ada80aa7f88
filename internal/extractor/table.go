package extractor

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// cellGap is the horizontal distance, in points, above which two words on
// the same row belong to different cells.
const cellGap = 10.0

// tableBackend rebuilds table rows from positioned words.
type tableBackend struct {
	batch int
}

func (tableBackend) Name() string { return "table" }

func (b tableBackend) Extract(ctx context.Context, doc *Document) (*Content, error) {
	c, err := doc.eachPage(ctx, b.batch, "table", readTableRows)
	if c != nil {
		c.TablesFound = countTables(c.Pages)
	}
	return c, err
}

func readTableRows(p pdf.Page) (Page, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return Page{}, err
	}
	var out []Row
	for _, row := range rows {
		if cells := splitCells(row.Content); len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return Page{Rows: out}, nil
}

// splitCells orders a row's words by X and merges neighbours separated by
// less than cellGap.
func splitCells(words []pdf.Text) Row {
	words = append([]pdf.Text(nil), words...)
	sort.SliceStable(words, func(a, b int) bool { return words[a].X < words[b].X })

	var cells Row
	var prevEnd float64
	for _, w := range words {
		text := strings.TrimSpace(w.S)
		if text == "" {
			continue
		}
		if len(cells) > 0 && w.X-prevEnd <= cellGap {
			last := &cells[len(cells)-1]
			last.Text += " " + text
		} else {
			cells = append(cells, Cell{Text: text, X: w.X})
		}
		prevEnd = wordEnd(w)
	}
	return cells
}

// wordEnd estimates where a word ends. Some fonts report no width, in which
// case half an em per rune is assumed.
func wordEnd(w pdf.Text) float64 {
	if w.W > 0 {
		return w.X + w.W
	}
	return w.X + float64(utf8.RuneCountInString(w.S))*w.FontSize*0.5
}

// countTables counts pages carrying at least two rows of three or more cells.
func countTables(pages []Page) int {
	n := 0
	for _, p := range pages {
		wide := 0
		for _, r := range p.Rows {
			if len(r) >= 3 {
				wide++
			}
		}
		if wide >= 2 {
			n++
		}
	}
	return n
}
