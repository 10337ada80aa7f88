package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
	"github.com/insightdelivered/upi-statement-analyzer/internal/metrics"
)

// Cell is one table cell with the X position of its first word.
type Cell struct {
	Text string
	X    float64
}

// Row is one visual row of a page, cells ordered left to right.
type Row []Cell

// String joins the row's cells with single spaces.
func (r Row) String() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

// Page is the content extracted from one page. Text backends fill Lines,
// the table backend fills Rows.
type Page struct {
	Number int
	Lines  []string
	Rows   []Row
}

// Content is the output of one extraction path.
type Content struct {
	Method         string
	Pages          []Page
	PagesProcessed int
	TablesFound    int
	Tried          []string
	Errors         []string
}

// Lines returns every text line in page order.
func (c *Content) Lines() []string {
	var lines []string
	for _, p := range c.Pages {
		lines = append(lines, p.Lines...)
	}
	return lines
}

// Rows returns every table row in page order.
func (c *Content) Rows() []Row {
	var rows []Row
	for _, p := range c.Pages {
		rows = append(rows, p.Rows...)
	}
	return rows
}

// LinesPerPage returns the number of lines (or rows) on each extracted page.
func (c *Content) LinesPerPage() []int {
	counts := make([]int, 0, len(c.Pages))
	for _, p := range c.Pages {
		counts = append(counts, len(p.Lines)+len(p.Rows))
	}
	return counts
}

// Texts returns one string per page, for source detection and readability checks.
func (c *Content) Texts() []string {
	texts := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		if len(p.Lines) > 0 {
			texts = append(texts, strings.Join(p.Lines, "\n"))
			continue
		}
		rows := make([]string, 0, len(p.Rows))
		for _, r := range p.Rows {
			rows = append(rows, r.String())
		}
		texts = append(texts, strings.Join(rows, "\n"))
	}
	return texts
}

// Backend is one extraction strategy.
type Backend interface {
	Name() string
	Extract(ctx context.Context, doc *Document) (*Content, error)
}

// Options configures the default backend chain.
type Options struct {
	PageBatch       int
	EnablePdftotext bool
	EnableOCR       bool
}

// Extractor runs the text backends in priority order, and the table backend
// on request.
type Extractor struct {
	text  []Backend
	table Backend
}

// New builds the default chain: library rows, coordinate content, page plain
// text, whole-document plain text, raw streams, then the optional external
// tools.
func New(opts Options) *Extractor {
	batch := opts.PageBatch
	text := []Backend{
		pageBackend{name: "rows", batch: batch, read: readRows},
		pageBackend{name: "content", batch: batch, read: readContent},
		pageBackend{name: "plain", batch: batch, read: readPlain},
		readerPlainBackend{},
		rawStreamBackend{},
	}
	if opts.EnablePdftotext {
		text = append(text, pdftotextBackend{})
	}
	if opts.EnableOCR {
		text = append(text, ocrBackend{})
	}
	return &Extractor{
		text:  text,
		table: tableBackend{batch: batch},
	}
}

// NewWithBackends builds an Extractor from explicit backends.
func NewWithBackends(table Backend, text ...Backend) *Extractor {
	return &Extractor{text: text, table: table}
}

// ExtractText tries each text backend until one yields readable text. An
// empty Content with a nil error means every backend came up empty; only
// context cancellation is returned as an error.
func (e *Extractor) ExtractText(ctx context.Context, doc *Document) (*Content, error) {
	log := logger.FromContext(ctx)
	out := &Content{}

	for _, b := range e.text {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Tried = append(out.Tried, b.Name())

		c, err := b.Extract(ctx, doc)
		if c != nil {
			out.Errors = append(out.Errors, c.Errors...)
			if c.PagesProcessed > out.PagesProcessed {
				out.PagesProcessed = c.PagesProcessed
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			log.Info().Str("method", b.Name()).Err(err).Msg("extraction method abandoned")
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", b.Name(), err))
			metrics.ExtractionAttempts.WithLabelValues(b.Name(), "error").Inc()
			continue
		}

		texts := c.Texts()
		if !isReadableText(texts) {
			log.Info().Str("method", b.Name()).Int("chars", totalTextLen(texts)).
				Msg("extraction method abandoned: no readable text")
			metrics.ExtractionAttempts.WithLabelValues(b.Name(), "unreadable").Inc()
			continue
		}

		metrics.ExtractionAttempts.WithLabelValues(b.Name(), "ok").Inc()
		out.Method = b.Name()
		out.Pages = c.Pages
		out.PagesProcessed = c.PagesProcessed
		return out, nil
	}
	return out, nil
}

// ExtractTables runs the layout-aware table backend.
func (e *Extractor) ExtractTables(ctx context.Context, doc *Document) (*Content, error) {
	log := logger.FromContext(ctx)
	out := &Content{}
	if e.table == nil {
		return out, nil
	}
	out.Tried = append(out.Tried, e.table.Name())

	c, err := e.table.Extract(ctx, doc)
	if c != nil {
		out.Errors = append(out.Errors, c.Errors...)
		out.PagesProcessed = c.PagesProcessed
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		log.Info().Str("method", e.table.Name()).Err(err).Msg("extraction method abandoned")
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", e.table.Name(), err))
		metrics.ExtractionAttempts.WithLabelValues(e.table.Name(), "error").Inc()
		return out, nil
	}

	result := "ok"
	if len(c.Rows()) == 0 {
		result = "empty"
	}
	metrics.ExtractionAttempts.WithLabelValues(e.table.Name(), result).Inc()
	out.Method = e.table.Name()
	out.Pages = c.Pages
	out.TablesFound = c.TablesFound
	return out, nil
}

// pageBackend reads a document page by page through the PDF library.
type pageBackend struct {
	name  string
	batch int
	read  func(p pdf.Page) (Page, error)
}

func (b pageBackend) Name() string { return b.name }

func (b pageBackend) Extract(ctx context.Context, doc *Document) (*Content, error) {
	return doc.eachPage(ctx, b.batch, b.name, b.read)
}

// eachPage calls read for every page, in batches of batch pages. A page that
// fails or panics is recorded and skipped.
func (d *Document) eachPage(ctx context.Context, batch int, method string, read func(pdf.Page) (Page, error)) (*Content, error) {
	log := logger.FromContext(ctx)
	c := &Content{Method: method}

	if batch <= 0 || batch > d.pages {
		batch = d.pages
	}
	batches := (d.pages + batch - 1) / batch
	start := time.Now()

	for b := 0; b < batches; b++ {
		first := b*batch + 1
		last := first + batch - 1
		if last > d.pages {
			last = d.pages
		}
		for n := first; n <= last; n++ {
			if err := ctx.Err(); err != nil {
				return c, err
			}
			page, err := d.readPage(n, read)
			if err != nil {
				log.Warn().Str("method", method).Int("page", n).Err(err).Msg("page skipped")
				c.Errors = append(c.Errors, fmt.Sprintf("%s: page %d: %v", method, n, err))
				continue
			}
			c.PagesProcessed++
			metrics.Pages.Inc()
			if len(page.Lines) > 0 || len(page.Rows) > 0 {
				c.Pages = append(c.Pages, page)
			}
		}

		if batches > 1 {
			done := b + 1
			elapsed := time.Since(start)
			eta := elapsed / time.Duration(done) * time.Duration(batches-done)
			ev := log.Debug()
			if d.large {
				ev = log.Info()
			}
			ev.Str("method", method).Int("batch", done).Int("of", batches).
				Dur("elapsed", elapsed).Dur("eta", eta).Msg("page batch done")
		}
	}
	return c, nil
}

func (d *Document) readPage(n int, read func(pdf.Page) (Page, error)) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return Page{Number: n}, errors.New("missing page object")
	}
	page, err = read(p)
	page.Number = n
	return page, err
}

// readRows uses the library's row grouping.
func readRows(p pdf.Page) (Page, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return Page{}, err
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return Page{Lines: lines}, nil
}

// readContent groups the page's glyphs by rounded Y and orders them by X.
func readContent(p pdf.Page) (Page, error) {
	content := p.Content()
	if len(content.Text) == 0 {
		return Page{}, nil
	}

	type glyph struct {
		x float64
		s string
	}
	byY := make(map[int][]glyph)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		byY[y] = append(byY[y], glyph{x: t.X, s: t.S})
	}

	ys := make([]int, 0, len(byY))
	for y := range byY {
		ys = append(ys, y)
	}
	// PDF Y grows upwards.
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		glyphs := byY[y]
		sort.Slice(glyphs, func(a, b int) bool { return glyphs[a].x < glyphs[b].x })

		var sb strings.Builder
		var prevX float64
		for i, g := range glyphs {
			if i > 0 && g.x-prevX > 15 {
				sb.WriteString("  ")
			}
			sb.WriteString(g.s)
			prevX = g.x
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return Page{Lines: lines}, nil
}

// readPlain uses the page plain-text path with the page's font map.
func readPlain(p pdf.Page) (Page, error) {
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err := p.GetPlainText(fonts)
	if err != nil {
		return Page{}, err
	}
	return Page{Lines: splitLines(text)}, nil
}

// readerPlainBackend extracts the whole document in one pass. Page
// boundaries are lost, so everything lands on page 1.
type readerPlainBackend struct{}

func (readerPlainBackend) Name() string { return "reader-plain" }

func (readerPlainBackend) Extract(ctx context.Context, doc *Document) (c *Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	reader, err := doc.reader.GetPlainText()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	c = &Content{Method: "reader-plain", PagesProcessed: doc.pages}
	if lines := splitLines(string(data)); len(lines) > 0 {
		c.Pages = []Page{{Number: 1, Lines: lines}}
	}
	return c, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// textQuality returns the share of characters that are ASCII letters,
// digits, whitespace, common punctuation or currency signs.
// unicode.IsLetter is too broad: garbage from identity-encoded fonts is
// full of accented letters.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if isReadableRune(r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func isReadableRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune(".,-/:;()'\"₹$€£%&@#!?+=*|_", r)
}

// commonWords appear in virtually every bank or wallet statement.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "paid",
	"received", "upi", "neft", "imps", "withdrawal", "deposit",
	"particulars", "opening", "closing", "transfer", "page",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, more than 60% readable
// characters and at least one statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
