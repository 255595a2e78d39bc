package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// extractionPrompt asks the model to transcribe the document, not interpret
// it. Interpretation happens later, against the provider's account rules.
const extractionPrompt = "You are a document extraction engine for brokerage and bank statements.\n\n" +
	"Task:\n" +
	"- Transcribe ALL text content of the attached PDF statement.\n" +
	"- Reconstruct every table as an array of rows, each row an array of cell strings.\n" +
	"- Count the pages.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n" +
	"The output object must have exactly these fields:\n" +
	"- \"text\": string, the full plain-text content\n" +
	"- \"tables\": array of tables, each table an array of rows, each row an array of strings\n" +
	"- \"page_count\": number\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n"

// GeminiExtractor extracts statement documents through the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor builds an extractor on an existing client. An empty
// model falls back to gemini-2.5-flash.
func NewGeminiExtractor(client *genai.Client, model string) *GeminiExtractor {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiExtractor{client: client, model: model}
}

// Extract sends the document inline and decodes the structured transcription.
func (e *GeminiExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, fmt.Errorf("extract: %w", domain.ErrEmptyDocument)
	}

	var doc Document
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &doc); err != nil {
		return nil, fmt.Errorf("extract: decode transcription: %w", err)
	}
	if doc.PageCount == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return &doc, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes adds despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
