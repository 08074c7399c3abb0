package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ClassifyDocument", func() {
	var opts Options

	BeforeEach(func() {
		opts = Options{}
	})

	When("the extracted data already carries a direction", func() {
		It("uses it with confidence capped at 0.7", func() {
			data := FinancialData{Direction: DirectionIncoming, Confidence: 0.9}
			result := ClassifyDocument(data, "whatever", opts)
			Expect(result.Type).To(Equal(DirectionIncoming))
			Expect(result.Confidence).To(Equal(0.7))
			Expect(result.Method).To(Equal("financial_data"))
		})

		It("passes lower extraction confidence through unchanged", func() {
			data := FinancialData{Direction: DirectionOutgoing, Confidence: 0.5}
			result := ClassifyDocument(data, "whatever", opts)
			Expect(result.Confidence).To(Equal(0.5))
		})
	})

	When("only keywords decide", func() {
		It("classifies supplier vocabulary as incoming", func() {
			data := FinancialData{Direction: DirectionUnknown}
			result := ClassifyDocument(data, "achat fournisseur bon de commande", opts)
			Expect(result.Type).To(Equal(DirectionIncoming))
			Expect(result.Confidence).To(Equal(0.95))
			Expect(result.Method).To(Equal("keywords"))
		})

		It("classifies sales vocabulary as outgoing", func() {
			data := FinancialData{Direction: DirectionUnknown}
			result := ClassifyDocument(data, "vente au client, prestation", opts)
			Expect(result.Type).To(Equal(DirectionOutgoing))
			Expect(result.Method).To(Equal("keywords"))
		})

		It("returns unknown when the scores tie", func() {
			data := FinancialData{Direction: DirectionUnknown}
			result := ClassifyDocument(data, "achat client", opts)
			Expect(result.Type).To(Equal(DirectionUnknown))
			Expect(result.Confidence).To(Equal(0.5))
		})

		It("returns unknown with zero confidence for neutral text", func() {
			data := FinancialData{Direction: DirectionUnknown}
			result := ClassifyDocument(data, "bonjour", opts)
			Expect(result.Type).To(Equal(DirectionUnknown))
			Expect(result.Confidence).To(Equal(0.0))
		})
	})

	When("a custom tie margin is configured", func() {
		It("widens the ambiguity band", func() {
			// Normalized scores 0.6 vs 0.4: decisive by default, a tie
			// under a 0.3 margin.
			data := FinancialData{Direction: DirectionUnknown}
			text := "achat vendeur"

			strict := ClassifyDocument(data, text, Options{TieMargin: 0.3})
			Expect(strict.Type).To(Equal(DirectionUnknown))

			loose := ClassifyDocument(data, text, opts)
			Expect(loose.Type).To(Equal(DirectionIncoming))
		})
	})

	When("the document is an invoice form", func() {
		It("marks a client field without a supplier field as outgoing", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "facture\nclient: acme distribution\ntotal: 100"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionOutgoing))
			Expect(result.Method).To(Equal("form_structure"))
			Expect(result.Confidence).To(BeNumerically(">=", 0.8))
		})

		It("marks a supplier field without a client field as incoming", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "facture\nfournisseur: maroc equipement\ntotal: 100"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionIncoming))
			Expect(result.Method).To(Equal("form_structure"))
		})

		It("does not apply the form rule outside invoices", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "client: acme distribution"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Method).NotTo(Equal("form_structure"))
		})
	})

	When("both ICE identifiers are present", func() {
		It("classifies seller-first as outgoing", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "ICE Vendeur: 001234567890123\nICE Acheteur: 009876543210987"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionOutgoing))
			Expect(result.Confidence).To(Equal(0.85))
			Expect(result.Method).To(Equal("ice_structure"))
		})

		It("classifies buyer-first as incoming", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "ICE Acheteur: 009876543210987\nICE Vendeur: 001234567890123"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionIncoming))
			Expect(result.Method).To(Equal("ice_structure"))
		})
	})

	When("closing phrases are present", func() {
		It("breaks a tie using the phrase", func() {
			data := FinancialData{Direction: DirectionUnknown}
			text := "merci. nous vous remercions pour votre confiance"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionOutgoing))
			Expect(result.Confidence).To(Equal(0.7))
			Expect(result.Method).To(Equal("phrasing"))
		})

		It("boosts an agreeing keyword verdict", func() {
			data := FinancialData{Direction: DirectionUnknown}
			// Incoming 3 vs outgoing 1 normalizes to 0.75; the matching
			// closing phrase adds 0.1.
			text := "achat envoyé. nous vous remercions pour votre commande"
			result := ClassifyDocument(data, text, opts)
			Expect(result.Type).To(Equal(DirectionIncoming))
			Expect(result.Confidence).To(BeNumerically("~", 0.85, 1e-9))
			Expect(result.Method).To(Equal("keywords"))
		})
	})

	It("never reports confidence above 0.95", func() {
		data := FinancialData{Direction: DirectionUnknown}
		text := "facture client: acme distribution\nbon de livraison. nous vous remercions pour votre confiance"
		result := ClassifyDocument(data, text, opts)
		Expect(result.Confidence).To(BeNumerically("<=", 0.95))
	})
})
