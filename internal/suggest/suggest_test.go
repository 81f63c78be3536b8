package suggest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/goresolve/internal/suggest"
)

func TestCandidatesRanksClosestFirst(t *testing.T) {
	got := suggest.Candidates("lodahs", []string{"lodash", "unrelated-totally-different", "lowdash"})
	require.NotEmpty(t, got)
	require.Equal(t, "lodash", got[0])
}

func TestCandidatesEmptyInput(t *testing.T) {
	require.Nil(t, suggest.Candidates("", []string{"a"}))
	require.Nil(t, suggest.Candidates("a", nil))
}
