package creds

import "strings"

// Credential is one username/password pair to try against the portal.
type Credential struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"-"`
}

// Parse turns free text into credentials, one per line, in input order.
// A line needs at least two whitespace-separated tokens; further tokens are
// ignored and shorter lines are dropped without error.
func Parse(text string) []Credential {
	var out []Credential
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, Credential{Identifier: fields[0], Secret: fields[1]})
	}
	return out
}

// Format renders credentials back into Parse's input format.
func Format(list []Credential) string {
	var b strings.Builder
	for _, c := range list {
		b.WriteString(c.Identifier)
		b.WriteByte(' ')
		b.WriteString(c.Secret)
		b.WriteByte('\n')
	}
	return b.String()
}
