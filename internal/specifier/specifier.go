// Package specifier splits a raw require/import request into its path,
// query, and fragment parts (§4.3). Nothing here touches the file system.
package specifier

import (
	"strings"

	rerrors "github.com/standardbeagle/goresolve/internal/errors"
)

// Parsed is the result of splitting a specifier into its three parts.
type Parsed struct {
	Path     string
	Query    string
	Fragment string
}

// Parse splits specifier into {path, query?, fragment?}.
//
// A literal "\0#" is an escaped '#' and is unescaped into '#' in the
// returned path. The first unescaped '?' starts the query; the first
// unescaped '#' after the query (or, absent a query, the first unescaped
// '#' in the whole string) starts the fragment.
func Parse(spec string) (Parsed, error) {
	if spec == "" {
		return Parsed{}, rerrors.Specifier("empty specifier")
	}

	hashIndex := -1
	queryIndex := -1
	i := 0
	for i < len(spec) {
		switch spec[i] {
		case '\\':
			if i+1 < len(spec) && spec[i+1] == '0' && i+2 < len(spec) && spec[i+2] == '#' {
				i += 3
				continue
			}
			i++
		case '?':
			if queryIndex == -1 && hashIndex == -1 {
				queryIndex = i
			}
			i++
		case '#':
			if queryIndex != -1 {
				if hashIndex == -1 {
					hashIndex = i
				}
			} else if hashIndex == -1 {
				hashIndex = i
			}
			i++
		default:
			i++
		}
	}

	var path, query, fragment string
	switch {
	case queryIndex != -1 && hashIndex != -1 && hashIndex > queryIndex:
		path = spec[:queryIndex]
		query = spec[queryIndex:hashIndex]
		fragment = spec[hashIndex:]
	case queryIndex != -1:
		path = spec[:queryIndex]
		query = spec[queryIndex:]
	case hashIndex != -1:
		path = spec[:hashIndex]
		fragment = spec[hashIndex:]
	default:
		path = spec
	}

	path = unescapeHash(path)
	return Parsed{Path: path, Query: query, Fragment: fragment}, nil
}

func unescapeHash(s string) string {
	if !strings.Contains(s, "\\0#") {
		return s
	}
	return strings.ReplaceAll(s, "\\0#", "#")
}
