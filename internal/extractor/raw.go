package extractor

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// rawStreamBackend reads text operators straight out of the content streams,
// without the PDF object model. It copes with Type0/CID fonts whose glyph
// codes are only readable through a ToUnicode CMap, which the library paths
// render as garbage. Streams of encrypted documents are ciphertext, so the
// backend declines them.
type rawStreamBackend struct{}

func (rawStreamBackend) Name() string { return "raw-stream" }

func (rawStreamBackend) Extract(ctx context.Context, doc *Document) (*Content, error) {
	if doc.encrypted {
		return nil, errors.New("raw streams are encrypted")
	}
	lines := rawTextLines(doc.data)
	c := &Content{Method: "raw-stream", PagesProcessed: doc.pages}
	if len(lines) > 0 {
		c.Pages = []Page{{Number: 1, Lines: lines}}
	}
	return c, nil
}

// rawTextLines decodes every text-bearing stream in data, in file order.
func rawTextLines(data []byte) []string {
	streams := rawStreams(data)
	if len(streams) == 0 {
		return nil
	}

	var decoded [][]byte
	for _, s := range streams {
		decoded = append(decoded, inflate(s))
	}
	cmap := collectCMaps(decoded)

	var lines []string
	for _, s := range decoded {
		lines = append(lines, streamLines(string(s), cmap)...)
	}
	return lines
}

// rawStreams returns the bytes between every "stream" and "endstream" keyword.
func rawStreams(data []byte) [][]byte {
	var streams [][]byte
	begin, end := []byte("stream"), []byte("endstream")

	for offset := 0; offset < len(data); {
		idx := bytes.Index(data[offset:], begin)
		if idx < 0 {
			break
		}
		start := offset + idx + len(begin)
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		stop := bytes.Index(data[start:], end)
		if stop < 0 {
			break
		}
		if stop > 0 {
			streams = append(streams, data[start:start+stop])
		}
		offset = start + stop + len(end)
	}
	return streams
}

// inflate undoes FlateDecode, returning the input unchanged when it is not
// zlib data.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return data
	}
	return out
}

var (
	hexShowOp   = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*Tj`)
	litShowOp   = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
	arrayShowOp = regexp.MustCompile(`\[([^\]]*)\]\s*TJ`)
	quoteShowOp = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*'`)
	moveOp      = regexp.MustCompile(`[\d.\-]+\s+[\d.\-]+\s+T[dD]\b`)
	hexOperand  = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	litOperand  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
)

// streamLines walks the BT/ET blocks of a content stream and splits text at
// positioning operators.
func streamLines(content string, cmap *toUnicode) []string {
	if !strings.Contains(content, "BT") {
		return nil
	}

	var lines []string
	for _, block := range textBlocks(content) {
		var cur strings.Builder
		flush := func() {
			if line := strings.TrimSpace(cur.String()); line != "" {
				lines = append(lines, line)
			}
			cur.Reset()
		}
		for _, op := range strings.Split(block, "\n") {
			op = strings.TrimSpace(op)
			if op == "T*" || moveOp.MatchString(op) {
				flush()
			}
			for _, m := range hexShowOp.FindAllStringSubmatch(op, -1) {
				cur.WriteString(decodeHex(m[1], cmap))
			}
			for _, m := range litShowOp.FindAllStringSubmatch(op, -1) {
				cur.WriteString(decodeLiteral(m[1], cmap))
			}
			for _, m := range arrayShowOp.FindAllStringSubmatch(op, -1) {
				cur.WriteString(decodeArray(m[1], cmap))
			}
			for _, m := range quoteShowOp.FindAllStringSubmatch(op, -1) {
				flush()
				cur.WriteString(decodeLiteral(m[1], cmap))
			}
		}
		flush()
	}
	return lines
}

// textBlocks returns the BT...ET sections of a content stream.
func textBlocks(content string) []string {
	var blocks []string
	for rest := content; ; {
		bt := strings.Index(rest, "BT")
		if bt < 0 {
			return blocks
		}
		et := strings.Index(rest[bt:], "ET")
		if et < 0 {
			return blocks
		}
		blocks = append(blocks, rest[bt:bt+et+2])
		rest = rest[bt+et+2:]
	}
}

// decodeHex decodes a <...> string through the CMap, then as UTF-16BE, then
// as bytes.
func decodeHex(h string, cmap *toUnicode) string {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if s := cmap.decode(raw); s != "" {
		return s
	}
	if len(raw) >= 2 && len(raw)%2 == 0 {
		var sb strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			r := rune(raw[i])<<8 | rune(raw[i+1])
			if unicode.IsPrint(r) {
				sb.WriteRune(r)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return printable(string(raw))
}

func decodeLiteral(s string, cmap *toUnicode) string {
	unescaped := unescapeLiteral(s)
	if out := cmap.decode([]byte(unescaped)); out != "" && mostlyPrintable(out) {
		return out
	}
	return printable(unescaped)
}

// decodeArray decodes a TJ array. Kerning numbers are dropped; large negative
// adjustments are word gaps and become spaces.
func decodeArray(array string, cmap *toUnicode) string {
	type operand struct {
		pos   int
		hex   bool
		value string
	}
	var ops []operand
	for _, loc := range hexOperand.FindAllStringSubmatchIndex(array, -1) {
		ops = append(ops, operand{pos: loc[0], hex: true, value: array[loc[2]:loc[3]]})
	}
	for _, loc := range litOperand.FindAllStringSubmatchIndex(array, -1) {
		ops = append(ops, operand{pos: loc[0], value: array[loc[2]:loc[3]]})
	}
	sort.Slice(ops, func(a, b int) bool { return ops[a].pos < ops[b].pos })

	var sb strings.Builder
	prevEnd := 0
	for _, op := range ops {
		if gap := strings.TrimSpace(array[prevEnd:op.pos]); strings.HasPrefix(gap, "-") && len(gap) >= 4 {
			sb.WriteByte(' ')
		}
		if op.hex {
			sb.WriteString(decodeHex(op.value, cmap))
			prevEnd = op.pos + len(op.value) + 2
		} else {
			sb.WriteString(decodeLiteral(op.value, cmap))
			prevEnd = op.pos + len(op.value) + 2
		}
	}
	return sb.String()
}

// unescapeLiteral resolves backslash escapes in a (...) string.
func unescapeLiteral(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch c := s[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		default:
			if c < '0' || c > '7' {
				sb.WriteByte(c)
				continue
			}
			val := int(c - '0')
			for j := 0; j < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
				i++
				val = val*8 + int(s[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

func printable(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' {
			return r
		}
		return -1
	}, s))
}

func mostlyPrintable(s string) bool {
	total, ok := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			ok++
		}
	}
	return total > 0 && ok*2 > total
}
