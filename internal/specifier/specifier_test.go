package specifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/goresolve/internal/specifier"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantPath string
		wantQ    string
		wantF    string
	}{
		{"plain", "./a", "./a", "", ""},
		{"query", "./a?foo=bar", "./a", "?foo=bar", ""},
		{"fragment", "./a#frag", "./a", "", "#frag"},
		{"query-then-fragment", "./a?foo#frag", "./a", "?foo", "#frag"},
		{"escaped-hash", `./a\0#b`, "./a#b", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := specifier.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPath, p.Path)
			assert.Equal(t, tc.wantQ, p.Query)
			assert.Equal(t, tc.wantF, p.Fragment)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := specifier.Parse("")
	require.Error(t, err)
}
