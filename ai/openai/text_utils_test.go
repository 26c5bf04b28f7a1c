package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  12 persons were killed.  ", want: "12 persons were killed."},
		{name: "fenced", in: "```\n12 persons were killed.\n```", want: "12 persons were killed."},
		{name: "fenced with info string", in: "```text\nNot available in retrieved reports.\n```", want: "Not available in retrieved reports."},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanAnswer(tt.in))
		})
	}
}
