package currency

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Mention is one detected currency occurrence in a document. Position and
// MatchLength are byte offsets into the scanned text. MADEquivalent,
// ConversionRate and ConversionDate are filled in by the converter.
type Mention struct {
	Code           string  `json:"code"`
	OriginalAmount float64 `json:"original_amount"`
	Position       int     `json:"position"`
	MatchLength    int     `json:"match_length"`
	FullMatch      string  `json:"full_match"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Confidence     float64 `json:"confidence"`
	IsReliable     bool    `json:"is_reliable"`
	MADEquivalent  float64 `json:"mad_equivalent,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
	ConversionDate string  `json:"conversion_date,omitempty"`
}

// Detector finds currency mentions using the catalog patterns. Reliability
// thresholds can be overridden per currency.
type Detector struct {
	thresholds map[string]float64
}

// NewDetector builds a Detector. Overrides replace the catalog threshold
// for the given codes; pass nil for the defaults.
func NewDetector(thresholdOverrides map[string]float64) *Detector {
	return &Detector{thresholds: thresholdOverrides}
}

var defaultDetector = NewDetector(nil)

// Detect scans text with the default detector.
func Detect(text string) []Mention {
	return defaultDetector.Detect(text)
}

// Detect scans the text against every catalog pattern and scores each
// match. The scan position advances past the match start, not the match
// end, which avoids getting stuck on adjacent matches but can re-match
// overlapping substrings; that trade-off is accepted. Results are sorted
// by text position.
func (d *Detector) Detect(text string) []Mention {
	if text == "" {
		return []Mention{}
	}

	hints := getContextHints(text)
	mentions := []Mention{}

	for _, cur := range catalog {
		threshold := cur.Threshold
		if override, ok := d.thresholds[cur.Code]; ok {
			threshold = override
		}

		for rank, pattern := range cur.patterns {
			pos := 0
			for pos < len(text) {
				loc := pattern.FindStringSubmatchIndex(text[pos:])
				if loc == nil {
					break
				}

				start := pos + loc[0]
				matched := text[start : pos+loc[1]]
				amountStr := strings.Replace(text[pos+loc[2]:pos+loc[3]], ",", ".", 1)

				if amount, err := strconv.ParseFloat(amountStr, 64); err == nil {
					confidence := confidenceScore(cur, matched, rank, hints)
					mentions = append(mentions, Mention{
						Code:           cur.Code,
						OriginalAmount: amount,
						Position:       start,
						MatchLength:    len(matched),
						FullMatch:      matched,
						Symbol:         cur.Symbol,
						Name:           cur.Name,
						Confidence:     confidence,
						IsReliable:     confidence >= threshold,
					})
				}

				pos = start + 1
			}
		}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Position < mentions[j].Position
	})
	return mentions
}

// contextHints are document-level signals that raise or lower detection
// confidence.
type contextHints struct {
	morocco      bool
	uae          bool
	usa          bool
	europe       bool
	uk           bool
	invoiceWords bool
	paymentWords bool
	hasTaxIDs    bool
}

var taxIDHintRe = regexp.MustCompile(`(?i)tax\s*id|tax\s*number|vat\s*number|ice|rc|if`)

func getContextHints(text string) contextHints {
	lower := strings.ToLower(text)
	return contextHints{
		morocco:      containsAny(lower, "morocco", "maroc", "المغرب"),
		uae:          containsAny(lower, "uae", "emirates", "الإمارات"),
		usa:          containsAny(lower, "usa", "united states", "america"),
		europe:       containsAny(lower, "euro", "european union", "eu"),
		uk:           containsAny(lower, "uk", "united kingdom", "britain"),
		invoiceWords: containsAny(lower, "invoice", "facture", "فاتورة"),
		paymentWords: containsAny(lower, "payment", "paiement", "دفع"),
		hasTaxIDs:    taxIDHintRe.MatchString(lower),
	}
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// confidenceScore combines the pattern rank, document context and symbol
// clarity into a single [0,1] score. Earlier (stricter) patterns start
// higher; regional hints matching the currency add up to 0.2; invoice or
// payment vocabulary and tax identifiers add 0.05 each; a literal symbol in
// the matched span adds 0.1.
func confidenceScore(cur *Currency, matched string, rank int, hints contextHints) float64 {
	base := 0.7 + 0.1*float64(4-min(rank, 3))

	context := 0.0
	switch cur.Code {
	case "MAD":
		if hints.morocco {
			context += 0.2
		}
	case "USD":
		if hints.usa {
			context += 0.2
		}
	case "EUR":
		if hints.europe {
			context += 0.2
		}
	case "GBP":
		if hints.uk {
			context += 0.2
		}
	case "AED":
		if hints.uae {
			context += 0.2
		}
	}
	if hints.invoiceWords || hints.paymentWords {
		context += 0.05
	}
	if hints.hasTaxIDs {
		context += 0.05
	}

	symbolScore := 0.0
	if mentionHasSymbol(cur, matched) {
		symbolScore = 0.1
	}

	return math.Min(base+context+symbolScore, 1.0)
}

// mentionHasSymbol reports whether the matched span contains the currency
// symbol or one of its alternates. The comparison is case-sensitive: a
// lowercased code does not count as a clear symbol.
func mentionHasSymbol(cur *Currency, matched string) bool {
	if strings.Contains(matched, cur.Symbol) {
		return true
	}
	for _, alt := range cur.AltSymbols {
		if strings.Contains(matched, alt) {
			return true
		}
	}
	return false
}
