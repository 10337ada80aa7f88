package normalize

import (
	"regexp"
	"strings"
	"time"
)

// Date layouts in priority order. Input is upper-cased first so AM/PM and
// month names match regardless of case.
var dateLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"2-1-2006",
	"2/1/2006",
	"2 Jan 2006",
	"2-Jan-06",
	"2-Jan-2006",
	"Jan 2 2006",
	"2.1.2006",
	"2 Jan 06",
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2/1/06",
	"2-1-06",
}

var (
	meridiemGap  = regexp.MustCompile(`(\d)(AM|PM)\b`)
	meridiemDots = regexp.MustCompile(`\b([AP])\.M\.?`)
	monthDot     = regexp.MustCompile(`\b([A-Z]{3,9})\.`)
	commaGap     = regexp.MustCompile(`,\s*`)
	spaces       = regexp.MustCompile(`\s+`)
)

// canonicalDate rewrites the cosmetic variants found in statements
// ("Sept", "a.m.", "10:30am", "Jan.") into forms the layouts accept.
func canonicalDate(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "SEPT", "SEP")
	s = meridiemDots.ReplaceAllString(s, "${1}M")
	s = meridiemGap.ReplaceAllString(s, "$1 $2")
	s = monthDot.ReplaceAllString(s, "$1")
	s = commaGap.ReplaceAllString(s, ", ")
	return spaces.ReplaceAllString(s, " ")
}

// parseDate tries every layout in order.
func parseDate(s string) (time.Time, bool) {
	s = canonicalDate(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
