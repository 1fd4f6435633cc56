package creds

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Credential
	}{
		{
			name:  "two lines",
			input: "alice secret1\nbob secret2",
			want:  []Credential{{"alice", "secret1"}, {"bob", "secret2"}},
		},
		{
			name:  "blank lines, padding and CRLF",
			input: "\n  alice   secret1  \r\n\r\n\tbob\tsecret2\r\n   \n",
			want:  []Credential{{"alice", "secret1"}, {"bob", "secret2"}},
		},
		{
			name:  "extra tokens are ignored",
			input: "alice secret1 note about alice",
			want:  []Credential{{"alice", "secret1"}},
		},
		{
			name:  "single token lines are dropped",
			input: "alice\nbob secret2\ncarol",
			want:  []Credential{{"bob", "secret2"}},
		},
		{
			name:  "nothing usable",
			input: "\n  \nlonely\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

// randomText builds noisy multi-line input from a small alphabet that
// includes separators, so short and long lines both show up.
func randomText(r *rand.Rand) string {
	alphabet := []string{"a", "b", "7", "ψ", " ", " ", "\t", "\n", "\r\n", "x"}
	var b strings.Builder
	n := r.Intn(80)
	for i := 0; i < n; i++ {
		b.WriteString(alphabet[r.Intn(len(alphabet))])
	}
	return b.String()
}

func TestParse_RoundTripIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		input := randomText(r)
		first := Parse(input)
		assert.Equal(t, first, Parse(Format(first)), "input %q", input)
	}
}

func TestParse_ShortLinesNeverYield(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		input := randomText(r)
		for _, line := range strings.Split(input, "\n") {
			if len(strings.Fields(line)) < 2 {
				assert.Empty(t, Parse(line), "line %q", line)
			}
		}
	}
}
