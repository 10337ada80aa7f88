package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/upi-statement-analyzer/internal/pdftest"
)

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{
			name:  "statement text",
			pages: []string{"Statement of transactions\n15 Jan 2024 Paid to Amazon ₹1,250.00 DEBIT"},
			want:  true,
		},
		{
			name:  "too short",
			pages: []string{"Paid ₹10"},
			want:  false,
		},
		{
			name:  "garbage glyphs",
			pages: []string{strings.Repeat("ÃÂ�÷þÿ¤¥¦§¨©", 10)},
			want:  false,
		},
		{
			name:  "readable but no statement words",
			pages: []string{strings.Repeat("lorem ipsum dolor sit amet ", 5)},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadableText(tt.pages); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

type stubBackend struct {
	name    string
	content *Content
	err     error
	calls   int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Extract(context.Context, *Document) (*Content, error) {
	s.calls++
	return s.content, s.err
}

func linesContent(lines ...string) *Content {
	return &Content{Pages: []Page{{Number: 1, Lines: lines}}, PagesProcessed: 1}
}

func TestExtractText_FallbackChain(t *testing.T) {
	failing := &stubBackend{name: "rows", err: errors.New("boom")}
	garbage := &stubBackend{name: "content", content: linesContent("ÿÿÿÿ")}
	good := &stubBackend{name: "plain", content: linesContent(
		"Statement of transactions",
		"15 Jan 2024 Paid to Amazon ₹1,250.00",
	)}
	unused := &stubBackend{name: "raw-stream"}

	e := NewWithBackends(nil, failing, garbage, good, unused)
	c, err := e.ExtractText(context.Background(), &Document{pages: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Method != "plain" {
		t.Errorf("got method %q, want plain", c.Method)
	}
	if got := strings.Join(c.Tried, ","); got != "rows,content,plain" {
		t.Errorf("got tried %q, want rows,content,plain", got)
	}
	if unused.calls != 0 {
		t.Error("backend after the first readable one must not run")
	}
	if len(c.Errors) != 1 || !strings.Contains(c.Errors[0], "rows: boom") {
		t.Errorf("got errors %q, want the rows failure", c.Errors)
	}
	if len(c.Lines()) != 2 {
		t.Errorf("got %d lines, want 2", len(c.Lines()))
	}
}

func TestExtractText_AllEmpty(t *testing.T) {
	e := NewWithBackends(nil,
		&stubBackend{name: "rows", content: &Content{}},
		&stubBackend{name: "plain", content: &Content{}},
	)
	c, err := e.ExtractText(context.Background(), &Document{pages: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Method != "" || len(c.Pages) != 0 {
		t.Errorf("expected empty content, got method=%q pages=%d", c.Method, len(c.Pages))
	}
	if len(c.Tried) != 2 {
		t.Errorf("got %d methods tried, want 2", len(c.Tried))
	}
}

func TestExtractText_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewWithBackends(nil, &stubBackend{name: "rows", content: &Content{}})
	_, err := e.ExtractText(ctx, &Document{pages: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestExtractText_Library(t *testing.T) {
	data := pdftest.Build([]pdftest.Page{
		pdftest.Lines(
			"Statement of transactions",
			"15 Jan 2024 Paid to Amazon Rs 1,250.00",
			"20 Feb 2024 Received from Jane Rs 500",
		),
		pdftest.Lines("10 Mar 2024 Paid to Uber Rs 320.50"),
	})
	doc, err := Open(context.Background(), data, OpenOptions{MaxPages: 800})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	c, err := New(Options{PageBatch: 1}).ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Method == "" {
		t.Fatalf("no backend produced readable text; tried %v, errors %v", c.Tried, c.Errors)
	}
	if c.PagesProcessed != 2 {
		t.Errorf("got %d pages processed, want 2", c.PagesProcessed)
	}
	joined := strings.Join(c.Lines(), "\n")
	for _, want := range []string{"Paid to Amazon", "Received from Jane", "Paid to Uber"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in extracted text:\n%s", want, joined)
		}
	}
}

func TestExtractTables_Library(t *testing.T) {
	xs := []float64{40, 140, 220, 420, 500}
	var page pdftest.Page
	page = append(page, pdftest.Row(760, xs, "Date", "Time", "Transaction Details", "Type", "Amount")...)
	page = append(page, pdftest.Row(740, xs, "Jan 15, 2024", "10:30 am", "Paid to Swiggy", "DEBIT", "Rs 450")...)
	page = append(page, pdftest.Row(720, xs, "Jan 16, 2024", "09:05 pm", "Received from Ravi", "CREDIT", "Rs 1,000")...)

	doc, err := Open(context.Background(), pdftest.Build([]pdftest.Page{page}), OpenOptions{MaxPages: 800})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c, err := New(Options{}).ExtractTables(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := c.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(rows), rows)
	}
	if len(rows[1]) != 5 {
		t.Fatalf("got %d cells in row 2, want 5: %v", len(rows[1]), rows[1])
	}
	if rows[1][2].Text != "Paid to Swiggy" {
		t.Errorf("got cell %q, want %q", rows[1][2].Text, "Paid to Swiggy")
	}
	if c.TablesFound != 1 {
		t.Errorf("got %d tables, want 1", c.TablesFound)
	}
}

func TestSplitCells(t *testing.T) {
	words := []pdf.Text{
		{X: 200, S: "DEBIT"},
		{X: 40, S: "Paid"},
		{X: 45, S: "to"},
		{X: 120, S: " "},
		{X: 300, S: "Rs 450", W: 30},
	}
	cells := splitCells(words)

	want := []string{"Paid to", "DEBIT", "Rs 450"}
	if len(cells) != len(want) {
		t.Fatalf("got %d cells %v, want %d", len(cells), cells, len(want))
	}
	for i, w := range want {
		if cells[i].Text != w {
			t.Errorf("cell %d: got %q, want %q", i, cells[i].Text, w)
		}
	}
	if cells[0].X != 40 {
		t.Errorf("got X %v, want 40", cells[0].X)
	}
	if len(splitCells(nil)) != 0 {
		t.Error("expected no cells for no words")
	}
}

func TestCountTables(t *testing.T) {
	wide := Row{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	narrow := Row{{Text: "a"}}
	pages := []Page{
		{Rows: []Row{wide, wide}},
		{Rows: []Row{wide, narrow}},
		{Rows: []Row{wide, wide, narrow}},
	}
	if got := countTables(pages); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}
