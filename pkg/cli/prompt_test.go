package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"yes", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Continue?")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.True(t, strings.HasPrefix(out.String(), "Continue? (y/N): "))
	}
}

func TestIsInteractive(t *testing.T) {
	t.Parallel()
	assert.False(t, IsInteractive(nil))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if !assert.NoError(t, err) {
		return
	}
	defer f.Close()
	assert.False(t, IsInteractive(f))
}
