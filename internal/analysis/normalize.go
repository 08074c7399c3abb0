package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	newlineRunRe     = regexp.MustCompile(`[\r\n]+`)
	nonASCIIRe       = regexp.MustCompile(`[^\x00-\x7F]`)
	horizontalWSRe   = regexp.MustCompile(`[^\S\n]+`)
	nonAmountCharsRe = regexp.MustCompile(`[^\d.,]`)
)

// CleanText prepares raw document text for pattern matching. Runs of
// whitespace collapse to single spaces and newline sequences become a single
// " \n " token so line-oriented patterns keep working. Characters outside the
// basic Latin range are replaced with spaces, so any pattern that relies on
// Arabic labels must be matched against the raw text instead.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = newlineRunRe.ReplaceAllString(text, " \n ")
	text = nonASCIIRe.ReplaceAllString(text, " ")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeAmount converts a matched amount substring into a float. The
// decimal separator is guessed from the positions of the last "." and ","
// in the string: whichever appears last and within three characters of the
// end is treated as the decimal separator. This is a best-effort heuristic,
// not a locale-aware parser. Unparseable input yields 0.
func NormalizeAmount(amountStr string) float64 {
	if amountStr == "" {
		return 0
	}

	cleaned := nonAmountCharsRe.ReplaceAllString(amountStr, "")

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastComma > lastDot && lastComma > len(cleaned)-4:
		// European format like 1.234,56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastDot > lastComma && lastDot > len(cleaned)-4:
		// US format like 1,234.56
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma > -1 && lastDot == -1:
		// Only commas present, treat them as decimal points
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		// Fall back to the longest numeric prefix, mirroring how a
		// lenient parser would read something like "1.2.3"
		return parseFloatPrefix(cleaned)
	}
	return amount
}

// parseFloatPrefix parses the longest prefix of s that forms a valid float,
// returning 0 when there is none.
func parseFloatPrefix(s string) float64 {
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
	}
	return 0
}
