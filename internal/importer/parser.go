package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// ParsedResponse is the outcome of parsing an AI response body. When
// Recovered is set, Notice carries the user-visible partial-success message.
type ParsedResponse struct {
	Records   []map[string]any
	Recovered bool
	Notice    string
}

// ParseResponse parses a text blob expected to contain a JSON array of
// transaction objects. When strict parsing fails with a truncation signature
// (the model hit its token limit mid-array), it salvages the prefix up to the
// last structurally complete record and re-parses. It only restores
// structural well-formedness; it never guesses field values.
func ParseResponse(raw string, cfg Config) (*ParsedResponse, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, domain.ErrEmptyResponse
	}

	cleaned = stripCodeFence(cleaned)

	var records []map[string]any
	err := json.Unmarshal([]byte(cleaned), &records)
	if err == nil {
		return &ParsedResponse{Records: records}, nil
	}

	if isTruncationError(err) {
		if fixed, ok := salvageTruncated(cleaned, truncationOffset(err)); ok {
			var recovered []map[string]any
			if rerr := json.Unmarshal([]byte(fixed), &recovered); rerr == nil && len(recovered) > 0 {
				return &ParsedResponse{
					Records:   recovered,
					Recovered: true,
					Notice:    fmt.Sprintf("Recovered %d transactions from a truncated response. Some may be missing.", len(recovered)),
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %v (response snippet: %s)",
		domain.ErrMalformedResponse, err, snippet(cleaned, cfg.SnippetLimit))
}

// stripCodeFence removes a single leading/trailing fenced-code-block marker:
// a first line consisting solely of a fence (optionally with a language tag)
// and a last line consisting solely of a fence.
func stripCodeFence(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) == 0 {
		return s
	}

	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "```") && !strings.ContainsAny(strings.TrimPrefix(first, "```"), " \t{[") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// isTruncationError reports whether the parse error looks like the response
// was cut off mid-structure (token-limited) rather than arbitrarily invalid.
// encoding/json reports truncation inside a string or between tokens as
// "unexpected end of JSON input".
func isTruncationError(err error) bool {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return strings.Contains(syn.Error(), "unexpected end of JSON input")
	}
	return strings.Contains(err.Error(), "unexpected end of JSON input")
}

// truncationOffset returns the reported error offset, or -1 when none is
// available.
func truncationOffset(err error) int {
	var syn *json.SyntaxError
	if errors.As(err, &syn) && syn.Offset > 0 {
		return int(syn.Offset)
	}
	return -1
}

// salvageTruncated locates the rightmost closing brace before the error
// offset that ends a complete record (followed, ignoring whitespace, by a
// comma, a closing bracket, or end of input), truncates there, and closes the
// array. Falls back to the rightmost "}," when no offset is available.
func salvageTruncated(cleaned string, offset int) (string, bool) {
	lastComplete := -1

	if offset > 0 {
		if offset > len(cleaned) {
			offset = len(cleaned)
		}
		searchArea := cleaned[:offset]
		if brace := strings.LastIndex(searchArea, "}"); brace > 0 {
			next := strings.TrimSpace(cleaned[brace+1:])
			if next == "" || strings.HasPrefix(next, ",") || strings.HasPrefix(next, "]") {
				lastComplete = brace
			}
		}
	}

	if lastComplete < 0 {
		if braceComma := strings.LastIndex(cleaned, "},"); braceComma > 0 {
			lastComplete = braceComma
		}
	}

	if lastComplete < 0 {
		return "", false
	}
	return cleaned[:lastComplete+1] + "\n]", true
}

// snippet bounds a response excerpt for diagnostics; the full payload never
// appears in user-facing text.
func snippet(s string, limit int) string {
	if limit <= 0 {
		limit = 500
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
