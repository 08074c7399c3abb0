package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/youbihi/facture-tracker/internal/currency"
)

// Analyzer composes text normalization, field extraction, direction
// classification and currency detection/conversion into one per-document
// analysis, and runs sequential batches of them.
type Analyzer struct {
	cache    *currency.RateCache
	detector *currency.Detector
	conv     *currency.Converter
	opts     Options
	clock    func() time.Time
}

// NewAnalyzer creates an Analyzer over the given rate cache.
func NewAnalyzer(cache *currency.RateCache, opts Options) *Analyzer {
	return NewAnalyzerWithDeps(cache, currency.NewDetector(nil), opts, time.Now)
}

// NewAnalyzerWithDeps creates an Analyzer with custom dependencies for
// testing.
func NewAnalyzerWithDeps(cache *currency.RateCache, detector *currency.Detector, opts Options, clock func() time.Time) *Analyzer {
	if clock == nil {
		clock = time.Now
	}
	return &Analyzer{
		cache:    cache,
		detector: detector,
		conv:     currency.NewConverterWithClock(cache, clock),
		opts:     opts,
		clock:    clock,
	}
}

// Converter exposes the analyzer's currency converter, so callers can offer
// standalone conversions against the same cache.
func (a *Analyzer) Converter() *currency.Converter {
	return a.conv
}

// RateSnapshot returns the (possibly cached) rate snapshot for a date, ""
// meaning current rates.
func (a *Analyzer) RateSnapshot(ctx context.Context, date string) (*currency.Snapshot, error) {
	return a.cache.Get(ctx, date)
}

// AnalyzeText runs the full pipeline over one document's raw text. It never
// fails: malformed input produces a low-confidence record and an unexpected
// panic is reported through the Error field with confidence 0.
func (a *Analyzer) AnalyzeText(ctx context.Context, text, documentType string) (result *DocumentAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Document analysis failed", "panic", r)
			result = &DocumentAnalysis{
				DocumentType:     documentType,
				Classification:   Classification{Type: DirectionUnknown, Confidence: 0, Method: "error"},
				Financial:        emptyFinancialData(),
				Currencies:       []currency.Mention{},
				CurrencyAnalysis: currency.Analysis{PrimaryCurrency: currency.BaseCurrency, Reliable: false},
				ProcessedAt:      a.clock(),
				Error:            fmt.Sprint(r),
			}
		}
	}()

	financial := extractFinancialData(text, documentType, a.opts)
	classification := ClassifyDocument(financial, text, a.opts)

	mentions := a.detector.Detect(text)

	totalMAD := 0.0
	hasForeign := false
	if len(mentions) > 0 {
		// Fetch the snapshot once for all conversions in this document.
		// The converter falls back to the default table by itself when
		// this fails.
		rates, err := a.cache.Rates(ctx, "")
		if err != nil {
			slog.Warn("Rate fetch failed for document analysis", "error", err)
		}

		for i := range mentions {
			conv := a.conv.Convert(ctx, mentions[i].OriginalAmount, mentions[i].Code, currency.BaseCurrency, rates, "")
			mentions[i].MADEquivalent = conv.ConvertedAmount
			mentions[i].ConversionRate = conv.Rate
			mentions[i].ConversionDate = conv.Date

			totalMAD += mentions[i].MADEquivalent
			if mentions[i].Code != currency.BaseCurrency {
				hasForeign = true
			}
		}
	}

	result = &DocumentAnalysis{
		DocumentType:       documentType,
		Classification:     classification,
		Financial:          financial,
		Currencies:         mentions,
		CurrencyAnalysis:   currency.Analyze(mentions),
		HasForeignCurrency: hasForeign,
		TotalMAD:           totalMAD,
		Confidence:         financial.Confidence,
		ProcessedAt:        a.clock(),
	}

	slog.Info("Document analysis completed",
		"document_type", documentType,
		"classification", result.Classification.Type,
		"confidence", result.Confidence,
	)
	return result
}

// BatchItem is one raw-text document in a batch.
type BatchItem struct {
	Name         string
	DocumentType string
	Text         string
}

// BatchError records a document that failed inside a batch.
type BatchError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchResult holds the per-document analyses and the isolated failures of
// one batch run.
type BatchResult struct {
	Results []*DocumentAnalysis `json:"results"`
	Errors  []BatchError        `json:"errors"`
}

// ProgressFunc is invoked after each document of a batch with the number of
// completed documents (successful or not), the batch size and the failure
// count so far.
type ProgressFunc func(completed, total, failed int)

// AnalyzeBatch processes documents strictly sequentially, in input order,
// emitting progress after each one. A failing document is recorded in the
// errors list without aborting the rest. Cancellation is checked between
// documents; on cancellation the partial result is returned along with the
// context error.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []BatchItem, onProgress ProgressFunc) (*BatchResult, error) {
	slog.Info("Processing document batch", "count", len(items))

	batch := &BatchResult{
		Results: []*DocumentAnalysis{},
		Errors:  []BatchError{},
	}

	completed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		result := a.AnalyzeText(ctx, item.Text, item.DocumentType)
		result.Name = item.Name

		if result.Error != "" {
			batch.Errors = append(batch.Errors, BatchError{Name: item.Name, Error: result.Error})
		} else {
			batch.Results = append(batch.Results, result)
		}

		completed++
		if onProgress != nil {
			onProgress(completed, len(items), len(batch.Errors))
		}
	}

	slog.Info("Batch processing completed",
		"total", len(items),
		"successful", len(batch.Results),
		"failed", len(batch.Errors),
	)
	return batch, nil
}
