package extracting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribePrompt = `Transcribe ALL text visible in this document image, exactly as written.
Keep the original line breaks and reading order. Include every amount, date,
company name, tax identifier and table cell. Do not summarize, translate or
interpret anything; output the raw text only, with no commentary and no
markdown formatting.`

// Gemini implements the Extractor interface using Google Gemini for OCR.
// It returns the transcribed text only; field extraction stays in the
// deterministic analysis pipeline.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractText transcribes the document through Gemini's vision model.
func (g *Gemini) ExtractText(data []byte, contentType string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PDFs are rendered and other formats converted, so the payload sent to
	// the model is always PNG.
	pngData, err := preparePNG(data, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix ("png"), not the full
	// MIME type.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return &Extraction{
		Text:         cleanTranscription(responseText.String()),
		DocumentType: DetectDocumentType("", contentType),
		Metadata: Metadata{
			FileSize: len(data),
			OCRUsed:  true,
		},
	}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// cleanTranscription strips the markdown code fences vision models sometimes
// wrap their output in despite being asked not to.
func cleanTranscription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
