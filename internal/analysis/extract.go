package analysis

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultVATRate is the Moroccan standard VAT rate, used when no explicit
// rate is found in the document.
const DefaultVATRate = 0.20

// FindTotalAmount locates the most likely document total. Amounts tagged by
// a total keyword win; among those the maximum is returned, since the
// largest tagged figure is usually the final total after subtotals. With no
// tagged amounts the maximum over all amount-like tokens is returned, which
// is a known source of false positives (e.g. a long tax ID read as an
// amount) but is relied on by downstream consumers.
func FindTotalAmount(text string) float64 {
	if tagged := extractPattern(text, totalKeywordsPattern); len(tagged) > 0 {
		return maxAmount(tagged)
	}

	if all := extractPattern(text, amountPattern); len(all) > 0 {
		return maxAmount(all)
	}

	return 0
}

func maxAmount(matches []string) float64 {
	max := 0.0
	for _, m := range matches {
		if a := NormalizeAmount(m); a > max {
			max = a
		}
	}
	return max
}

// FindDocumentDate returns the first date found in the text, normalized to
// YYYY-MM-DD, or an empty string. Only the first match is considered; no
// proximity weighting toward invoice keywords is applied.
func FindDocumentDate(text string) string {
	dates := extractPattern(text, datePattern)
	if len(dates) == 0 {
		return ""
	}

	if t, ok := parseDateString(dates[0]); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

var numericDateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02/01/06",
	"02-01-06",
}

var monthNames = map[string]time.Month{
	"janvier": time.January, "jan": time.January, "january": time.January,
	"février": time.February, "fév": time.February, "february": time.February,
	"mars": time.March, "mar": time.March, "march": time.March,
	"avril": time.April, "avr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"juin": time.June, "jun": time.June, "june": time.June,
	"juillet": time.July, "jul": time.July, "july": time.July,
	"août": time.August, "aoû": time.August, "august": time.August,
	"septembre": time.September, "sep": time.September, "september": time.September,
	"octobre": time.October, "oct": time.October, "october": time.October,
	"novembre": time.November, "nov": time.November, "november": time.November,
	"décembre": time.December, "déc": time.December, "december": time.December,
}

var spacesRe = regexp.MustCompile(`\s+`)

// parseDateString handles the formats the date pattern can produce: numeric
// day-first dates and "12 janvier 2025" style written dates.
func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	for _, layout := range numericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	fields := spacesRe.Split(strings.ToLower(s), -1)
	if len(fields) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthNames[fields[1]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// FindVATInfo extracts the VAT rate and amount. The rate defaults to the
// Moroccan 20% when no explicit percentage is present; the amount defaults
// to 0.
func FindVATInfo(text string) VATInfo {
	return findVATInfo(text, text, DefaultVATRate)
}

// findVATInfo searches the cleaned text first and retries on the raw text,
// where the Arabic VAT label survives ASCII stripping.
func findVATInfo(cleaned, raw string, defaultRate float64) VATInfo {
	info := VATInfo{Rate: defaultRate}

	rates := extractPattern(cleaned, vatRatePattern)
	if len(rates) == 0 {
		rates = extractPattern(raw, vatRatePattern)
	}
	if len(rates) > 0 {
		rateStr := strings.Replace(rates[0], ",", ".", 1)
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil {
			info.Rate = rate / 100
		}
	}

	amounts := extractPattern(cleaned, vatAmountPattern)
	if len(amounts) == 0 {
		amounts = extractPattern(raw, vatAmountPattern)
	}
	if len(amounts) > 0 {
		info.Amount = NormalizeAmount(amounts[0])
	}

	return info
}

// FindInvoiceNumber returns the first invoice reference found, or empty.
func FindInvoiceNumber(text string) string {
	if matches := extractPattern(text, invoiceNumPattern); len(matches) > 0 {
		return strings.TrimSpace(matches[0])
	}
	return ""
}

// ExtractCompanies collects all company names and tax identifiers. No
// deduplication is applied beyond what the patterns themselves enforce.
func ExtractCompanies(text string) Companies {
	names := extractPattern(text, companyNamePattern)
	if names == nil {
		names = []string{}
	}
	taxIDs := extractPattern(text, taxIDPattern)
	if taxIDs == nil {
		taxIDs = []string{}
	}
	return Companies{Names: names, TaxIDs: taxIDs}
}

// Quick direction vocabularies used during extraction. The classifier
// applies its own, larger weighted keyword tiers afterwards.
var (
	extractIncomingTerms = []string{
		"fournisseur", "supplier", "nous avons acheté", "we purchased",
		"achat", "purchase", "bon de commande", "order", "bon de reception",
	}
	extractOutgoingTerms = []string{
		"client", "customer", "nous avons vendu", "we sold", "vente",
		"sale", "prestation", "service provided", "bon de livraison",
	}
)

// determineDirection does a coarse keyword count to seed the direction
// field. Ties resolve to unknown.
func determineDirection(text string) Direction {
	lower := strings.ToLower(text)

	incoming, outgoing := 0, 0
	for _, term := range extractIncomingTerms {
		if strings.Contains(lower, term) {
			incoming++
		}
	}
	for _, term := range extractOutgoingTerms {
		if strings.Contains(lower, term) {
			outgoing++
		}
	}

	switch {
	case incoming == outgoing:
		return DirectionUnknown
	case incoming > outgoing:
		return DirectionIncoming
	default:
		return DirectionOutgoing
	}
}

// financialKeywordPatterns maps a canonical keyword to the pattern that
// detects it, in either language.
var financialKeywordPatterns = []struct {
	keyword string
	re      *regexp.Regexp
}{
	{"facture", regexp.MustCompile(`(?i)facture|invoice`)},
	{"avoir", regexp.MustCompile(`(?i)avoir|credit note`)},
	{"devis", regexp.MustCompile(`(?i)devis|quote`)},
	{"commande", regexp.MustCompile(`(?i)commande|order`)},
	{"paiement", regexp.MustCompile(`(?i)paiement|payment`)},
	{"livraison", regexp.MustCompile(`(?i)livraison|delivery`)},
	{"total", regexp.MustCompile(`(?i)total`)},
	{"tva", regexp.MustCompile(`(?i)tva|vat`)},
	{"remise", regexp.MustCompile(`(?i)remise|discount`)},
	{"achat", regexp.MustCompile(`(?i)achat|purchase`)},
	{"vente", regexp.MustCompile(`(?i)vente|sale`)},
	{"client", regexp.MustCompile(`(?i)client|customer`)},
	{"fournisseur", regexp.MustCompile(`(?i)fournisseur|supplier`)},
	{"montant", regexp.MustCompile(`(?i)montant|amount`)},
}

// ExtractKeywords lists the financial vocabulary present in the text.
func ExtractKeywords(text string) []string {
	keywords := make([]string, 0, len(financialKeywordPatterns))
	for _, kp := range financialKeywordPatterns {
		if kp.re.MatchString(text) {
			keywords = append(keywords, kp.keyword)
		}
	}
	return keywords
}

// ExtractFinancialData runs the full field extraction over one document's
// text. It never fails: any internal panic is recovered and a zero-valued
// result is returned so one bad document cannot abort a batch.
func ExtractFinancialData(text, documentType string) FinancialData {
	return extractFinancialData(text, documentType, Options{})
}

func extractFinancialData(text, documentType string, opts Options) (data FinancialData) {
	slog.Debug("Extracting financial data", "text_length", len(text), "document_type", documentType)

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Recovered from panic during financial extraction", "panic", r)
			data = emptyFinancialData()
		}
	}()

	cleaned := CleanText(text)

	data = FinancialData{
		Amount:        FindTotalAmount(cleaned),
		VAT:           findVATInfo(cleaned, text, opts.defaultVATRate()),
		Date:          FindDocumentDate(cleaned),
		InvoiceNumber: FindInvoiceNumber(cleaned),
		Direction:     determineDirection(cleaned),
		Companies:     ExtractCompanies(cleaned),
		Keywords:      ExtractKeywords(cleaned),
	}

	fieldsExtracted := 0
	if data.Amount > 0 {
		fieldsExtracted++
	}
	if data.VAT.Amount > 0 {
		fieldsExtracted++
	}
	if data.Date != "" {
		fieldsExtracted++
	}
	if data.InvoiceNumber != "" {
		fieldsExtracted++
	}
	if len(data.Companies.Names) > 0 {
		fieldsExtracted++
	}
	if data.Direction != DirectionUnknown {
		fieldsExtracted++
	}
	data.Confidence = float64(fieldsExtracted) / 6

	slog.Debug("Financial data extraction completed", "amount", data.Amount, "confidence", data.Confidence)
	return data
}

func emptyFinancialData() FinancialData {
	return FinancialData{
		Direction: DirectionUnknown,
		Companies: Companies{Names: []string{}, TaxIDs: []string{}},
		Keywords:  []string{},
	}
}
