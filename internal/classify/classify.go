package classify

import (
	"strings"

	"github.com/v0xg/registrycheck/internal/result"
)

// Rule maps page content to a status when Match reports true.
// Match receives the lower-cased page content.
type Rule struct {
	Name   string
	Match  func(content string) bool
	Status result.Status
}

// Contains matches when any marker occurs in the content. Markers are
// lower-cased once here so callers may pass them as they appear on the page.
func Contains(markers ...string) func(string) bool {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return func(content string) bool {
		for _, m := range lowered {
			if strings.Contains(content, m) {
				return true
			}
		}
		return false
	}
}

// Marker phrases observed on the TAXISnet pages.
var (
	InvalidLoginMarkers = []string{"login failed", "λανθασμένο όνομα"}
	LoggedInMarkers     = []string{"αποσύνδεση", "μητρώου"}
)

// DefaultRules checks invalid credentials before the logged-in markers, so a
// page carrying both is still a failed login.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "invalid-login", Match: Contains(InvalidLoginMarkers...), Status: result.WrongCredentials},
		{Name: "logged-in", Match: Contains(LoggedInMarkers...), Status: result.Success},
	}
}

// Classifier evaluates its rules in order; the first match wins.
type Classifier struct {
	rules    []Rule
	fallback result.Status
}

// New returns a Classifier over rules, falling back to UnknownError.
func New(rules ...Rule) *Classifier {
	return &Classifier{rules: rules, fallback: result.UnknownError}
}

// Default is New(DefaultRules()...).
func Default() *Classifier {
	return New(DefaultRules()...)
}

// Classify returns the status of the rendered page content.
func (c *Classifier) Classify(content string) result.Status {
	status, _ := c.Explain(content)
	return status
}

// Explain is Classify plus the name of the rule that matched ("" on fallback).
func (c *Classifier) Explain(content string) (result.Status, string) {
	lowered := strings.ToLower(content)
	for _, r := range c.rules {
		if r.Match(lowered) {
			return r.Status, r.Name
		}
	}
	return c.fallback, ""
}
