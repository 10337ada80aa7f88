// Package pdftest writes small, valid PDF documents for tests. Text is drawn
// in Helvetica with WinAnsi encoding, so only Latin-1 text round-trips; use
// "Rs" rather than the rupee sign.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Text is one string drawn at an absolute position.
type Text struct {
	X, Y float64
	S    string
}

// Page is the text drawn on one page.
type Page []Text

// Lines lays out one line per string, top to bottom, at the left margin.
func Lines(lines ...string) Page {
	page := make(Page, 0, len(lines))
	for i, l := range lines {
		page = append(page, Text{X: 40, Y: 760 - float64(i)*14, S: l})
	}
	return page
}

// Row lays out cells left to right on one baseline, one cell per x position.
func Row(y float64, xs []float64, cells ...string) []Text {
	row := make([]Text, 0, len(cells))
	for i, c := range cells {
		if c == "" || i >= len(xs) {
			continue
		}
		row = append(row, Text{X: xs[i], Y: y, S: c})
	}
	return row
}

// Option adjusts the generated document.
type Option func(*builder)

// Encrypted adds a standard security handler dictionary whose password
// check always fails.
func Encrypted() Option {
	return func(b *builder) { b.encrypt = true }
}

// DeclaredPages overrides the page tree's /Count, so a tiny file can claim
// to be a very large document.
func DeclaredPages(n int) Option {
	return func(b *builder) { b.count = n }
}

type builder struct {
	encrypt bool
	count   int
}

// Build returns a PDF with one page per Page.
func Build(pages []Page, opts ...Option) []byte {
	b := &builder{count: len(pages)}
	for _, o := range opts {
		o(b)
	}

	// 1 catalog, 2 page tree, 3 font, then a page and a content stream per page.
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var kids []string
	for _, p := range pages {
		pageObj := len(objects) + 1
		contentObj := pageObj + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentObj),
			stream(content(p)),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), b.count)

	trailerExtra := ""
	if b.encrypt {
		objects = append(objects, "<< /Filter /Standard /V 1 /R 2 /Length 40 /P -44 "+
			"/O <"+strings.Repeat("ab", 32)+"> /U <"+strings.Repeat("cd", 32)+"> >>")
		trailerExtra = fmt.Sprintf(" /Encrypt %d 0 R /ID [<%s> <%s>]", len(objects),
			strings.Repeat("01", 16), strings.Repeat("01", 16))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, trailerExtra, xref)
	return buf.Bytes()
}

func content(p Page) string {
	var sb strings.Builder
	for _, t := range p {
		fmt.Fprintf(&sb, "BT /F1 10 Tf 1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n", t.X, t.Y, escape(t.S))
	}
	return sb.String()
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(data), data)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
