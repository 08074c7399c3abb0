package currency

import (
	"regexp"

	"golang.org/x/text/language"
)

// BaseCurrency is the triangulation base for all conversions. Its rate is
// always exactly 1.
const BaseCurrency = "MAD"

// Currency describes one supported currency: its symbols, the ranked
// detection patterns (earlier patterns are stricter and score higher), the
// per-currency reliability threshold and formatting hints.
type Currency struct {
	Code       string
	Symbol     string
	Name       string
	AltSymbols []string
	Threshold  float64

	patterns    []*regexp.Regexp
	symbolFirst bool
	wholeUnits  bool
	locale      language.Tag
}

// catalog lists the supported currencies in a fixed order so detection is
// deterministic.
var catalog = []*Currency{
	{
		Code: "MAD", Symbol: "د.م.", Name: "Moroccan Dirham",
		AltSymbols: []string{"Dh", "DH", "درهم", "Dhs", "MAD", "dh."},
		Threshold:  0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:د\.م\.|Dh|DH|درهم|Dhs|MAD|dh\.)`),
			regexp.MustCompile(`(?i)(?:د\.م\.|Dh|DH|درهم|Dhs|MAD|dh\.)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:dirhams|dirham)`),
			regexp.MustCompile(`(?i)(?:dirhams|dirham)\s*(\d+(?:[.,]\d+)?)`),
		},
		locale: language.MustParse("fr-MA"),
	},
	{
		Code: "USD", Symbol: "$", Name: "US Dollar",
		AltSymbols: []string{"US$", "USD", "Dollar", "Dollars", "US Dollars"},
		Threshold:  0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:\$|US\$|USD)`),
			regexp.MustCompile(`(?i)(?:\$|US\$|USD)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:dollars|dollar|US dollars|US dollar)`),
			regexp.MustCompile(`(?i)(?:dollars|dollar|US dollars|US dollar)\s*(\d+(?:[.,]\d+)?)`),
		},
		symbolFirst: true,
		locale:      language.AmericanEnglish,
	},
	{
		Code: "EUR", Symbol: "€", Name: "Euro",
		AltSymbols: []string{"EUR", "Euro", "Euros", "€", "Eur"},
		Threshold:  0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:€|EUR|Euro|Euros|Eur)`),
			regexp.MustCompile(`(?i)(?:€|EUR|Euro|Euros|Eur)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:euros|euro)`),
			regexp.MustCompile(`(?i)(?:euros|euro)\s*(\d+(?:[.,]\d+)?)`),
		},
		locale: language.French,
	},
	{
		Code: "GBP", Symbol: "£", Name: "British Pound",
		AltSymbols: []string{"GBP", "Sterling", "Pounds", "UK Pounds", "UKP", "£"},
		Threshold:  0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:£|GBP|Pounds|Sterling)`),
			regexp.MustCompile(`(?i)(?:£|GBP|Pounds|Sterling)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:pound sterling|pounds sterling|pound|pounds)`),
			regexp.MustCompile(`(?i)(?:pound sterling|pounds sterling|pound|pounds)\s*(\d+(?:[.,]\d+)?)`),
		},
		symbolFirst: true,
		locale:      language.BritishEnglish,
	},
	{
		Code: "CAD", Symbol: "C$", Name: "Canadian Dollar",
		AltSymbols: []string{"CAD", "Can$", "Canadian Dollar", "Canadian Dollars"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:C\$|CAD|Can\$)`),
			regexp.MustCompile(`(?i)(?:C\$|CAD|Can\$)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Canadian dollars|Canadian dollar)`),
			regexp.MustCompile(`(?i)(?:Canadian dollars|Canadian dollar)\s*(\d+(?:[.,]\d+)?)`),
		},
		symbolFirst: true,
		locale:      language.MustParse("en-CA"),
	},
	{
		Code: "CHF", Symbol: "Fr", Name: "Swiss Franc",
		AltSymbols: []string{"CHF", "Fr.", "SFr", "Swiss Franc", "Swiss Francs"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Fr|CHF|Fr\.|SFr)`),
			regexp.MustCompile(`(?i)(?:Fr|CHF|Fr\.|SFr)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Swiss francs|Swiss franc)`),
			regexp.MustCompile(`(?i)(?:Swiss francs|Swiss franc)\s*(\d+(?:[.,]\d+)?)`),
		},
		locale: language.MustParse("de-CH"),
	},
	{
		Code: "JPY", Symbol: "¥", Name: "Japanese Yen",
		AltSymbols: []string{"JPY", "JP¥", "Yen", "円"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:¥|JPY|JP¥|Yen|円)`),
			regexp.MustCompile(`(?i)(?:¥|JPY|JP¥|Yen|円)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Japanese yen)`),
			regexp.MustCompile(`(?i)(?:Japanese yen)\s*(\d+(?:[.,]\d+)?)`),
		},
		symbolFirst: true,
		wholeUnits:  true,
		locale:      language.Japanese,
	},
	{
		Code: "CNY", Symbol: "¥", Name: "Chinese Yuan",
		AltSymbols: []string{"CNY", "CN¥", "Yuan", "RMB", "元"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:CNY|CN¥|Yuan|RMB|元)`),
			regexp.MustCompile(`(?i)(?:CNY|CN¥|Yuan|RMB|元)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Chinese yuan|Renminbi)`),
			regexp.MustCompile(`(?i)(?:Chinese yuan|Renminbi)\s*(\d+(?:[.,]\d+)?)`),
		},
		symbolFirst: true,
		locale:      language.SimplifiedChinese,
	},
	{
		Code: "AED", Symbol: "د.إ", Name: "UAE Dirham",
		AltSymbols: []string{"AED", "Dhs", "UAE Dirham", "Emirati Dirham"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:د\.إ|AED|Dhs)`),
			regexp.MustCompile(`(?i)(?:د\.إ|AED|Dhs)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:UAE dirham|Emirati dirham)`),
			regexp.MustCompile(`(?i)(?:UAE dirham|Emirati dirham)\s*(\d+(?:[.,]\d+)?)`),
		},
		locale: language.MustParse("ar-AE"),
	},
	{
		Code: "SAR", Symbol: "ر.س", Name: "Saudi Riyal",
		AltSymbols: []string{"SAR", "SR", "Saudi Riyal"},
		Threshold:  0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ر\.س|SAR|SR)`),
			regexp.MustCompile(`(?i)(?:ر\.س|SAR|SR)\s*(\d+(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Saudi riyal|riyals)`),
			regexp.MustCompile(`(?i)(?:Saudi riyal|riyals)\s*(\d+(?:[.,]\d+)?)`),
		},
		locale: language.MustParse("ar-SA"),
	},
}

var catalogIndex = func() map[string]*Currency {
	idx := make(map[string]*Currency, len(catalog))
	for _, c := range catalog {
		idx[c.Code] = c
	}
	return idx
}()

// Lookup returns the catalog entry for a currency code, or nil when the
// code is not supported.
func Lookup(code string) *Currency {
	return catalogIndex[code]
}

// SupportedCodes returns the closed set of supported currency codes in
// catalog order.
func SupportedCodes() []string {
	codes := make([]string, len(catalog))
	for i, c := range catalog {
		codes[i] = c.Code
	}
	return codes
}

// DefaultRates is the static fallback rate table, expressed as units of
// foreign currency per 1 MAD.
var DefaultRates = Rates{
	"MAD": 1.0,
	"USD": 0.1003,
	"EUR": 0.0921,
	"GBP": 0.0786,
	"CAD": 0.1354,
	"CHF": 0.0911,
	"JPY": 15.2315,
	"CNY": 0.6483,
	"AED": 0.3683,
	"SAR": 0.3762,
}

// Rates maps currency codes to their rate against the base currency.
type Rates map[string]float64

// Clone returns a copy of the rate table.
func (r Rates) Clone() Rates {
	out := make(Rates, len(r))
	for code, rate := range r {
		out[code] = rate
	}
	return out
}
