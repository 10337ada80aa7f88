package extractor

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// toUnicode maps glyph codes to text, built from the ToUnicode CMaps found in
// a document. Codes are stored as uppercase hex of their byte form.
type toUnicode struct {
	codes map[string]string
	width int // bytes per code
}

var (
	bfCharBlock  = regexp.MustCompile(`(?s)beginbfchar\s*(.*?)\s*endbfchar`)
	bfRangeBlock = regexp.MustCompile(`(?s)beginbfrange\s*(.*?)\s*endbfrange`)
	hexToken     = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// collectCMaps merges every CMap found among the decoded streams. It returns
// nil when there are none.
func collectCMaps(streams [][]byte) *toUnicode {
	var merged *toUnicode
	for _, s := range streams {
		content := string(s)
		if !strings.Contains(content, "beginbfchar") && !strings.Contains(content, "beginbfrange") {
			continue
		}
		if merged == nil {
			merged = &toUnicode{codes: make(map[string]string)}
		}
		merged.parse(content)
	}
	if merged == nil || len(merged.codes) == 0 {
		return nil
	}
	return merged
}

func (m *toUnicode) parse(content string) {
	for _, block := range bfCharBlock.FindAllStringSubmatch(content, -1) {
		tokens := hexToken.FindAllStringSubmatch(block[1], -1)
		for i := 0; i+1 < len(tokens); i += 2 {
			m.set(tokens[i][1], utf16Hex(tokens[i+1][1]))
		}
	}

	for _, block := range bfRangeBlock.FindAllStringSubmatch(content, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if open := strings.Index(line, "["); open >= 0 {
				m.parseRangeArray(line[:open], line[open:])
				continue
			}
			tokens := hexToken.FindAllStringSubmatch(line, -1)
			if len(tokens) < 3 {
				continue
			}
			lo, err1 := strconv.ParseUint(tokens[0][1], 16, 32)
			hi, err2 := strconv.ParseUint(tokens[1][1], 16, 32)
			dst, err3 := strconv.ParseUint(tokens[2][1], 16, 32)
			if err1 != nil || err2 != nil || err3 != nil || hi < lo {
				continue
			}
			srcLen, dstLen := len(tokens[0][1]), len(tokens[2][1])
			for code := lo; code <= hi; code++ {
				m.set(padHex(code, srcLen), utf16Hex(padHex(dst+code-lo, dstLen)))
			}
		}
	}
}

// parseRangeArray handles "<lo> <hi> [<u1> <u2> ...]".
func (m *toUnicode) parseRangeArray(head, array string) {
	tokens := hexToken.FindAllStringSubmatch(head, -1)
	if len(tokens) < 2 {
		return
	}
	lo, err := strconv.ParseUint(tokens[0][1], 16, 32)
	if err != nil {
		return
	}
	srcLen := len(tokens[0][1])
	for i, t := range hexToken.FindAllStringSubmatch(array, -1) {
		m.set(padHex(lo+uint64(i), srcLen), utf16Hex(t[1]))
	}
}

func (m *toUnicode) set(code, text string) {
	if text == "" {
		return
	}
	code = strings.ToUpper(code)
	m.codes[code] = text
	if w := len(code) / 2; w > m.width {
		m.width = w
	}
}

// decode maps raw string bytes through the table. A nil table decodes nothing.
func (m *toUnicode) decode(raw []byte) string {
	if m == nil || len(m.codes) == 0 {
		return ""
	}
	width := m.width
	if width < 1 {
		width = 1
	}

	var sb strings.Builder
	for i := 0; i < len(raw); {
		if i+width <= len(raw) {
			if s, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+width]))]; ok {
				sb.WriteString(s)
				i += width
				continue
			}
		}
		if s, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+1]))]; ok {
			sb.WriteString(s)
		} else if width == 1 && raw[i] >= 32 && raw[i] < 127 {
			sb.WriteByte(raw[i])
		}
		i++
	}
	return sb.String()
}

func padHex(v uint64, n int) string {
	s := strings.ToUpper(strconv.FormatUint(v, 16))
	if len(s) > n {
		return s[len(s)-n:]
	}
	return strings.Repeat("0", n-len(s)) + s
}

// utf16Hex decodes a hex string of UTF-16BE code units, surrogate pairs included.
func utf16Hex(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	data, err := hex.DecodeString(h)
	if err != nil || len(data) == 0 {
		return ""
	}
	if len(data) == 1 {
		return string(rune(data[0]))
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return string(utf16.Decode(units))
}
