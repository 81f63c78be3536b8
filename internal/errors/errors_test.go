package errors

import (
	stderrors "errors"
	"testing"
)

func TestNotFoundUnwrapAndMessage(t *testing.T) {
	err := NotFound("lodash")
	if err.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err.Kind)
	}
	if got, want := err.Error(), "not_found: lodash"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestJSONWrapsUnderlying(t *testing.T) {
	underlying := stderrors.New("unexpected token")
	err := JSON("/pkg/package.json", underlying)
	if !stderrors.Is(err, underlying) {
		t.Errorf("expected errors.Is to find underlying cause")
	}
}

func TestResolveErrorIsMatchesByKind(t *testing.T) {
	a := NotFound("a")
	b := NotFound("b")
	if !stderrors.Is(a, b) {
		t.Errorf("expected two NotFound errors with different specifiers to match via Is")
	}
	if stderrors.Is(a, Ignored("x")) {
		t.Errorf("expected NotFound not to match Ignored")
	}
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{NotFound("x"), true},
		{MatchedAliasNotFound("x", "x$"), true},
		{Ignored("x"), false},
		{Recursion("x"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := Recoverable(c.err); got != c.want {
			t.Errorf("Recoverable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsIgnoredNeverRecoverable(t *testing.T) {
	err := Ignored("/pkg/a.js")
	if Recoverable(err) {
		t.Errorf("Ignored must never be treated as recoverable")
	}
	if !IsIgnored(err) {
		t.Errorf("expected IsIgnored to report true")
	}
}

func TestMultiErrorFiltersNils(t *testing.T) {
	me := NewMultiError([]error{nil, NotFound("a"), nil, NotFound("b")})
	if len(me.Errors) != 2 {
		t.Fatalf("expected nils to be filtered, got %d errors", len(me.Errors))
	}
}
