package currency

import "sort"

// CurrencyCount pairs a currency code with its mention count.
type CurrencyCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Analysis summarizes the currency mentions of one document.
type Analysis struct {
	PrimaryCurrency string          `json:"primary_currency"`
	Reliable        bool            `json:"reliable"`
	CurrenciesFound []string        `json:"currencies_found,omitempty"`
	MostFrequent    []CurrencyCount `json:"most_frequent,omitempty"`
}

// Analyze picks the primary currency of a document from its mentions. The
// leader is the code with the highest count, average confidence breaking
// ties. MAD gets a Moroccan-context bias: whenever its aggregate score
// (count times average confidence) reaches 80% of the leader's, MAD is
// preferred regardless of raw ranking. Reliable is true iff every mention
// of the chosen primary currency has confidence above 0.7.
func Analyze(mentions []Mention) Analysis {
	if len(mentions) == 0 {
		return Analysis{PrimaryCurrency: BaseCurrency, Reliable: true}
	}

	// Counts and confidence totals, with codes kept in first-appearance
	// order for deterministic tie handling.
	var codes []string
	counts := map[string]int{}
	totalConfidence := map[string]float64{}
	for _, m := range mentions {
		if _, seen := counts[m.Code]; !seen {
			codes = append(codes, m.Code)
		}
		counts[m.Code]++
		totalConfidence[m.Code] += m.Confidence
	}

	primary := BaseCurrency
	highestCount := 0
	highestAvgConfidence := 0.0

	for _, code := range codes {
		count := counts[code]
		avgConfidence := totalConfidence[code] / float64(count)

		if count > highestCount || (count == highestCount && avgConfidence > highestAvgConfidence) {
			primary = code
			highestCount = count
			highestAvgConfidence = avgConfidence
		}

		if code == BaseCurrency && primary != BaseCurrency {
			primaryScore := float64(counts[primary]) * (totalConfidence[primary] / float64(counts[primary]))
			madScore := float64(count) * avgConfidence
			if madScore >= primaryScore*0.8 {
				primary = BaseCurrency
			}
		}
	}

	reliable := true
	for _, m := range mentions {
		if m.Code == primary && m.Confidence <= 0.7 {
			reliable = false
			break
		}
	}

	mostFrequent := make([]CurrencyCount, 0, len(codes))
	for _, code := range codes {
		mostFrequent = append(mostFrequent, CurrencyCount{Code: code, Count: counts[code]})
	}
	sort.SliceStable(mostFrequent, func(i, j int) bool {
		return mostFrequent[i].Count > mostFrequent[j].Count
	})

	return Analysis{
		PrimaryCurrency: primary,
		Reliable:        reliable,
		CurrenciesFound: codes,
		MostFrequent:    mostFrequent,
	}
}
