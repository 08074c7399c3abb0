package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/youbihi/facture-tracker/internal/analysis"
	"github.com/youbihi/facture-tracker/internal/currency"
	"github.com/youbihi/facture-tracker/internal/extracting"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// facture-batch analyzes invoices and receipts from the command line without
// a server or database: PDFs go through the text extractor, .txt files are
// read as-is, and the analysis records are printed as JSON on stdout.
func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("facture-batch")
	var (
		tieMargin   = fs.Float64Long("tie-margin", analysis.DefaultTieMargin, "Direction score margin below which a document is classified unknown")
		vatRate     = fs.Float64Long("vat-rate", analysis.DefaultVATRate, "Default VAT rate when a document states none")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FACTURE_BATCH"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	paths := fs.GetArgs()
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "usage: facture-batch [flags] <file.pdf|file.txt> ...\n\n%s\n", ffhelp.Flags(fs))
		os.Exit(1)
	}

	// Ctrl-C stops the batch between documents and prints what finished
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := extracting.NewFitz()
	defer extractor.Close()

	cache := currency.NewRateCache(currency.SimulatedProvider{}, currency.DefaultCacheTTL)
	analyzer := analysis.NewAnalyzer(cache, analysis.Options{
		TieMargin:      *tieMargin,
		DefaultVATRate: *vatRate,
	})

	items := make([]analysis.BatchItem, 0, len(paths))
	for _, path := range paths {
		text, documentType, err := readDocument(extractor, path)
		if err != nil {
			slog.Error("Failed to read document", "path", path, "error", err)
			os.Exit(1)
		}
		items = append(items, analysis.BatchItem{
			Name:         filepath.Base(path),
			DocumentType: documentType,
			Text:         text,
		})
	}

	batch, err := analyzer.AnalyzeBatch(ctx, items, func(completed, total, failed int) {
		slog.Info("Analyzing", "completed", completed, "total", total, "failed", failed)
	})
	if err != nil {
		slog.Error("Batch interrupted", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		slog.Error("Failed to encode results", "error", err)
		os.Exit(1)
	}
}

// readDocument returns the text of one input file. PDFs are run through the
// extractor; anything else is treated as plain text.
func readDocument(extractor extracting.Extractor, path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		extraction, err := extractor.ExtractText(data, "application/pdf")
		if err != nil {
			return "", "", err
		}
		return extraction.Text, extraction.DocumentType, nil
	}

	return string(data), extracting.DetectDocumentType(path, ""), nil
}
