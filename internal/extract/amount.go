package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// amountToken matches a candidate numeric amount in statutory layouts:
// optional sign or accounting parentheses, digits grouped by dots, commas or
// apostrophes, or by single spaces between three-digit groups. Space grouping
// never crosses a run of two or more spaces, so the current-year and
// prior-year columns of a statement line stay separate tokens. A standalone
// "0" qualifies too: a literal zero printed in a filing is a value, not a gap.
var amountToken = regexp.MustCompile(`\(?-?\d{1,3}(?: \d{3})+(?:[.,]\d{1,2})?\)?|\(?-?\d[\d.,']{2,}\d\)?|\(?-?\d{3,}\)?|\b0\b`)

// noteRef matches note citations like "(Note 6)", "note 12" or "(Notes 4, 5)".
var noteRef = regexp.MustCompile(`(?i)\(?\s*notes?\s+(\d+)`)

// currencyMarker strips currency notation that would otherwise glue itself
// to the number scan.
var currencyMarker = regexp.MustCompile(`(?i)\b(?:EUR|USD|GBP|CHF|TEUR|kEUR)\b\.?`)

// parseAmount normalises one numeric token from a Luxembourg-style statement
// into a float64. Handles "517.400.000", "1 234 567,89", "1,234,567.89" and
// accounting negatives "(1.000)". Returns false when the token is not a
// plausible amount.
func parseAmount(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	// Space and apostrophe groupings are always thousands separators.
	s = strings.NewReplacer(" ", "", " ", "", "'", "").Replace(s)
	s = strings.Trim(s, ".,")
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The rightmost separator is the decimal mark, the other groups thousands.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Continental style: a trailing 2-digit group is decimals, anything
		// else ("517,400,000") is a thousands grouping.
		if len(s)-lastComma-1 == 2 && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// "517.400.000" groups thousands; "1234.56" is a decimal.
		if isThousandsGrouped(s, '.') {
			s = strings.ReplaceAll(s, ".", "")
		} else if strings.Count(s, ".") > 1 {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// isThousandsGrouped reports whether every group after the first separator
// has exactly three digits, e.g. "517.400.000".
func isThousandsGrouped(s string, sep byte) bool {
	parts := strings.Split(s, string(sep))
	if len(parts) < 2 {
		return false
	}
	for i, p := range parts {
		if i == 0 {
			if len(p) == 0 || len(p) > 3 {
				return false
			}
			continue
		}
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// firstAmount scans a line for the first plausible amount after the given
// offset, ignoring note citations and currency markers. Statutory layouts
// put the current-year column first, so the first amount is the one wanted.
func firstAmount(line string, from int) (float64, bool) {
	if from > len(line) {
		return 0, false
	}
	rest := noteRef.ReplaceAllString(line[from:], "")
	rest = currencyMarker.ReplaceAllString(rest, "")

	for _, tok := range amountToken.FindAllString(rest, -1) {
		if v, ok := parseAmount(tok); ok {
			return v, true
		}
	}
	return 0, false
}

// AmountIn scans an arbitrary line for its first plausible amount. Used by
// the note resolver when itemizing intercompany breakdowns.
func AmountIn(line string) (float64, bool) {
	return firstAmount(line, 0)
}

// findNoteRef returns the first note identifier cited on a line, e.g. "Note 6".
func findNoteRef(line string) string {
	m := noteRef.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return "Note " + m[1]
}
