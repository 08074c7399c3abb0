package analysis

import "regexp"

// Field patterns tuned to Moroccan financial documents. Amount-like groups
// accept space, dot or comma as thousands separators; labels cover French,
// English and the common Arabic abbreviations. Most patterns run against the
// ASCII-cleaned text; the VAT patterns carry the Arabic label, which only
// survives in the raw text, so findVATInfo retries there.
var (
	// Standalone amounts with an optional trailing currency marker.
	amountPattern = regexp.MustCompile(`(?i)(\b\d{1,3}(?:[ .,]\d{3})*(?:[ .,]\d{2})?\b|\b\d+(?:[ .,]\d{2})?\b)(?:\s*(?:MAD|DH|DHs|\$|USD|EUR|Dhs))?`)

	// VAT amounts, e.g. "TVA 20%: 200,00".
	vatAmountPattern = regexp.MustCompile(`(?i)(?:TVA|VAT|T\.V\.A\.|ض\.ق\.م\.)\s*(?:\d{1,2}(?:[,.]\d{1,2})?%)?(?:\s*:)?\s*(\d{1,3}(?:[ .,]\d{3})*(?:[ .,]\d{2})?\b|\b\d+(?:[ .,]\d{2})?\b)`)

	// Explicit VAT rates, e.g. "TVA à 14%".
	vatRatePattern = regexp.MustCompile(`(?i)(?:TVA|VAT|T\.V\.A\.|ض\.ق\.م\.)\s*(?:à|at|de|of)?\s*(\d{1,2}(?:[,.]\d{1,2})?)(?:\s*%)`)

	// Numeric and written-out dates, French and English month names.
	datePattern = regexp.MustCompile(`(?i)\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}\s+(?:janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre|jan|fév|mar|avr|mai|jun|jul|aoû|sep|oct|nov|déc|january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{2,4})\b`)

	// Invoice references like "Facture N° FA-2025/001" or "Ref: INV123".
	invoiceNumPattern = regexp.MustCompile(`(?i)(?:(?:N°|N|#|Nr|Reference|Ref)(?:\.?\s*):?\s*|facture(?:\s+n°|:)\s*)([A-Z0-9][-A-Z0-9/]{3,25})`)

	// Moroccan tax identifiers (IF, ICE, RC, patente).
	taxIDPattern = regexp.MustCompile(`(?i)(?:IF|ICE|RC|PATENTE|TP|I\.F\.|identifiant\s+fiscal)(?:\.?\s*:?\s*)([0-9]{1,15})`)

	companyNamePattern = regexp.MustCompile(`(?i)(?:société|company|entreprise|s\.a\.r\.l|sarl|s\.a|sa)\s+([A-Za-z0-9\s]{3,50})`)

	invoiceTypePattern = regexp.MustCompile(`(?i)(?:facture|invoice|credit note|debit note|delivery note|bon de livraison|avoir|note de débit|devis|quotation|pro\s*forma)`)

	// Amounts tagged by a total keyword. These take priority over bare
	// amounts when locating the document total.
	totalKeywordsPattern = regexp.MustCompile(`(?i)(?:total|montant|amount|somme)(?:\s+(?:ht|ttc|tva incluse|net))?\s*(?::)?\s*(\d{1,3}(?:[ .,]\d{3})*(?:[ .,]\d{2})?\b|\b\d+(?:[ .,]\d{2})?\b)`)

	paymentTermsPattern = regexp.MustCompile(`(?i)(?:payment|paiement)(?:\s+(?:terms|conditions|délai))?\s*(?::)?\s*(.{5,50})`)

	bankDetailsPattern = regexp.MustCompile(`(?i)(?:rib|iban|account|compte)(?:\s+(?:number|bancaire|banque))?\s*(?::)?\s*([A-Z0-9]{10,30})`)
)

// extractPattern collects every match of pattern in text. When the pattern
// has a capture group the captured value is returned, otherwise the full
// match.
func extractPattern(text string, pattern *regexp.Regexp) []string {
	var matches []string
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 && m[1] != "" {
			matches = append(matches, m[1])
		} else {
			matches = append(matches, m[0])
		}
	}
	return matches
}
