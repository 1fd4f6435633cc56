package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxPageRunes caps how much page text is sent to a provider.
const MaxPageRunes = 6000

// Verdict is a provider's reading of a page no marker matched.
type Verdict struct {
	Category string `json:"category"` // e.g. maintenance, captcha, password_change, locked, other
	Summary  string `json:"summary"`
}

func (v Verdict) String() string {
	return fmt.Sprintf("%s: %s", v.Category, v.Summary)
}

// Provider defines the interface for page triage
type Provider interface {
	Explain(ctx context.Context, pageText string) (*Verdict, error)
}

// NewProvider creates a new triage provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

// PageText reduces rendered HTML to its visible text, whitespace collapsed and
// capped at limit runes (MaxPageRunes when limit <= 0).
func PageText(html string, limit int) string {
	if limit <= 0 {
		limit = MaxPageRunes
	}

	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

// parseVerdictJSON extracts and parses a JSON object from a response that may contain surrounding text
func parseVerdictJSON(response string) (*Verdict, error) {
	// First try direct parsing
	var v Verdict
	if err := json.Unmarshal([]byte(response), &v); err == nil {
		return validVerdict(&v)
	}

	// Find JSON object in response (look for { ... })
	start := strings.Index(response, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Find matching closing brace
	depth := 0
	end := -1
	for i := start; i < len(response) && end == -1; i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &v); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return validVerdict(&v)
}

func validVerdict(v *Verdict) (*Verdict, error) {
	if v.Category == "" {
		return nil, fmt.Errorf("verdict has no category")
	}
	v.Category = strings.ToLower(strings.TrimSpace(v.Category))
	return v, nil
}
