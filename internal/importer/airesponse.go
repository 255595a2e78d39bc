package importer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// errorIndicators are response prefixes that mean the AI gateway handed back
// an error message instead of a completion.
var errorIndicators = []string{
	"error:",
	"exception:",
	"failed:",
	"internal server error",
	"service unavailable",
	"timeout",
	"rate limit",
}

// refusalPatterns flag short responses where the model declined to parse.
var refusalPatterns = []string{
	"i cannot",
	"i am unable",
	"i can't",
	"apologies, but",
	"sorry, but",
	"unfortunately, i cannot",
}

// ValidateAIResponse checks the shape of the raw completion before any
// parsing is attempted: non-empty, valid UTF-8, not an HTML error page, not a
// gateway error message, within the size ceiling, and not a refusal. Returns
// the trimmed response, or ErrEmptyResponse / ErrInvalidAIResponse.
func ValidateAIResponse(response string, maxBytes int) (string, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return "", domain.ErrEmptyResponse
	}

	if !utf8.ValidString(response) {
		return "", fmt.Errorf("%w: response contains invalid UTF-8", domain.ErrInvalidAIResponse)
	}

	lower := strings.ToLower(response)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return "", fmt.Errorf("%w: received an HTML error page instead of JSON", domain.ErrInvalidAIResponse)
	}

	for _, indicator := range errorIndicators {
		if strings.HasPrefix(lower, indicator) {
			return "", fmt.Errorf("%w: AI service returned an error message", domain.ErrInvalidAIResponse)
		}
	}

	if maxBytes > 0 && len(response) > maxBytes {
		return "", fmt.Errorf("%w: response size %d exceeds ceiling %d", domain.ErrInvalidAIResponse, len(response), maxBytes)
	}

	// Refusals are short; a long response containing "I cannot" is probably
	// legitimate transaction text.
	if len(response) < 1000 {
		for _, pattern := range refusalPatterns {
			if strings.Contains(lower, pattern) {
				return "", fmt.Errorf("%w: model declined to parse the statement", domain.ErrInvalidAIResponse)
			}
		}
	}

	return response, nil
}
