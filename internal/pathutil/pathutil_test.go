package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"./a/b":       "a/b",
		"a/./b":       "a/b",
		"a/../b":      "b",
		"/a/../b":     "/b",
		"../a":        "../a",
		"a/b/":        "a/b/",
		"":            "",
		".":           ".",
		"/":           "/",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeWith(t *testing.T) {
	if got, want := NormalizeWith("/pkg", "./a"), "/pkg/a"; got != want {
		t.Errorf("NormalizeWith = %q, want %q", got, want)
	}
	if got, want := NormalizeWith("/pkg", "/abs/a"), "/abs/a"; got != want {
		t.Errorf("NormalizeWith absolute override = %q, want %q", got, want)
	}
}

func TestHasSlashStart(t *testing.T) {
	cases := map[string]bool{
		"/a":      true,
		"./a":     false,
		"a":       false,
		`C:\a`:    true,
		"":        false,
	}
	for in, want := range cases {
		if got := HasSlashStart(in); got != want {
			t.Errorf("HasSlashStart(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsInvalidExportsTarget(t *testing.T) {
	cases := map[string]bool{
		"./dist/index.js":       false,
		"./../secret":           true,
		"./node_modules/x":      true,
		"./NODE_MODULES/x":      true,
		"./a/./b":               true,
		"./a//b":                true,
		"./a":                   false,
	}
	for in, want := range cases {
		if got := IsInvalidExportsTarget(in); got != want {
			t.Errorf("IsInvalidExportsTarget(%q) = %v, want %v", in, got, want)
		}
	}
}
