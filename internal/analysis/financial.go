package analysis

import (
	"time"

	"github.com/youbihi/facture-tracker/internal/currency"
)

// Direction indicates whether a document records an expense or revenue
// transaction.
type Direction string

const (
	// DirectionIncoming marks an expense document (purchase invoice,
	// supplier bill).
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing marks a revenue document (sales invoice, client
	// bill).
	DirectionOutgoing Direction = "outgoing"
	// DirectionUnknown is used when no direction could be determined.
	DirectionUnknown Direction = "unknown"
)

// VATInfo holds the VAT rate (as a decimal fraction) and VAT amount
// extracted from a document.
type VATInfo struct {
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Companies holds company names and tax identifiers found in a document.
type Companies struct {
	Names  []string `json:"names"`
	TaxIDs []string `json:"tax_ids"`
}

// FinancialData aggregates the fields extracted from one document. It is
// always well-formed: extraction failures produce zero values, never errors.
type FinancialData struct {
	Amount        float64   `json:"amount"`
	VAT           VATInfo   `json:"vat_info"`
	Date          string    `json:"date,omitempty"` // ISO 8601 (YYYY-MM-DD), empty when not found
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Direction     Direction `json:"direction"`
	Companies     Companies `json:"companies"`
	Confidence    float64   `json:"confidence"`
	Keywords      []string  `json:"keywords"`
}

// Classification is the direction verdict for a document. Method names the
// rule that produced the final answer: financial_data, keywords,
// form_structure, ice_structure, phrasing or error.
type Classification struct {
	Type       Direction `json:"type"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
}

// DocumentAnalysis is the final per-document record assembled by the
// Analyzer.
type DocumentAnalysis struct {
	Name               string             `json:"name,omitempty"`
	DocumentType       string             `json:"document_type"`
	Classification     Classification     `json:"classification"`
	Financial          FinancialData      `json:"financial_data"`
	Currencies         []currency.Mention `json:"currencies"`
	CurrencyAnalysis   currency.Analysis  `json:"currency_analysis"`
	HasForeignCurrency bool               `json:"has_foreign_currency"`
	TotalMAD           float64            `json:"total_mad"`
	Confidence         float64            `json:"confidence"`
	ProcessedAt        time.Time          `json:"processed_at"`
	Error              string             `json:"error,omitempty"`
}
