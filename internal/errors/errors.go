// Package errors defines the resolver's error taxonomy: one typed struct
// per decision-tree outcome, all wrapping an optional underlying cause so
// callers can errors.As down to the concrete kind.
package errors

import (
	"fmt"
	"strings"
)

// Kind identifies which branch of the resolution decision tree failed.
type Kind string

const (
	KindNotFound                      Kind = "not_found"
	KindIgnored                       Kind = "ignored"
	KindBuiltin                       Kind = "builtin"
	KindRecursion                     Kind = "recursion"
	KindJSON                          Kind = "json"
	KindTsconfigNotFound              Kind = "tsconfig_not_found"
	KindTsconfigSelfReference         Kind = "tsconfig_self_reference"
	KindInvalidPackageConfig          Kind = "invalid_package_config"
	KindInvalidPackageConfigDirectory Kind = "invalid_package_config_directory"
	KindPackagePathNotExported        Kind = "package_path_not_exported"
	KindPackageImportNotDefined       Kind = "package_import_not_defined"
	KindInvalidPackageTarget          Kind = "invalid_package_target"
	KindExtensionAlias                Kind = "extension_alias"
	KindMatchedAliasNotFound          Kind = "matched_alias_not_found"
	KindSpecifier                     Kind = "specifier"
	KindIO                            Kind = "io"
)

// ResolveError is the common shape for every resolution failure.
type ResolveError struct {
	Kind        Kind
	Specifier   string
	Path        string
	Underlying  error
	Suggestions []string
}

func (e *ResolveError) Error() string {
	var base string
	switch {
	case e.Specifier != "" && e.Path != "":
		base = fmt.Sprintf("%s: %s (%s)%s", e.Kind, e.Specifier, e.Path, suffix(e.Underlying))
	case e.Specifier != "":
		base = fmt.Sprintf("%s: %s%s", e.Kind, e.Specifier, suffix(e.Underlying))
	case e.Path != "":
		base = fmt.Sprintf("%s: %s%s", e.Kind, e.Path, suffix(e.Underlying))
	default:
		base = fmt.Sprintf("%s%s", e.Kind, suffix(e.Underlying))
	}
	if len(e.Suggestions) == 0 {
		return base
	}
	return fmt.Sprintf("%s (did you mean %s?)", base, strings.Join(e.Suggestions, ", "))
}

func (e *ResolveError) Unwrap() error { return e.Underlying }

// Is makes errors.Is(err, target) match on Kind when target is itself a
// *ResolveError; its Specifier and Path are not compared.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func suffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

// NotFound builds the NotFound(spec) error.
func NotFound(specifier string) *ResolveError {
	return &ResolveError{Kind: KindNotFound, Specifier: specifier}
}

// NotFoundWithSuggestions builds a NotFound(spec) error carrying "did you
// mean" candidates gathered from the directory the lookup failed in.
func NotFoundWithSuggestions(specifier string, suggestions []string) *ResolveError {
	return &ResolveError{Kind: KindNotFound, Specifier: specifier, Suggestions: suggestions}
}

// Ignored builds the Ignored(path) error — browser field or alias mapped
// the request to false.
func Ignored(path string) *ResolveError {
	return &ResolveError{Kind: KindIgnored, Path: path}
}

// Builtin builds the Builtin(node_spec) error.
func Builtin(specifier string) *ResolveError {
	return &ResolveError{Kind: KindBuiltin, Specifier: specifier}
}

// Recursion builds the Recursion error — depth exceeded.
func Recursion(specifier string) *ResolveError {
	return &ResolveError{Kind: KindRecursion, Specifier: specifier}
}

// JSON builds a package.json/tsconfig parse-failure error.
func JSON(path string, err error) *ResolveError {
	return &ResolveError{Kind: KindJSON, Path: path, Underlying: err}
}

// TsconfigNotFound builds the TsconfigNotFound(path) error.
func TsconfigNotFound(path string) *ResolveError {
	return &ResolveError{Kind: KindTsconfigNotFound, Path: path}
}

// TsconfigSelfReference builds the TsconfigSelfReference(path) error.
func TsconfigSelfReference(path string) *ResolveError {
	return &ResolveError{Kind: KindTsconfigSelfReference, Path: path}
}

// InvalidPackageConfig builds the InvalidPackageConfig(pkg) error — mixed
// '.'/non-'.' keys in an exports object.
func InvalidPackageConfig(pkgPath string) *ResolveError {
	return &ResolveError{Kind: KindInvalidPackageConfig, Path: pkgPath}
}

// InvalidPackageConfigDirectory builds the
// InvalidPackageConfigDirectory(pkg) error — legacy trailing-slash mismatch.
func InvalidPackageConfigDirectory(pkgPath string) *ResolveError {
	return &ResolveError{Kind: KindInvalidPackageConfigDirectory, Path: pkgPath}
}

// PackagePathNotExported builds the PackagePathNotExported(subpath,pkg)
// error.
func PackagePathNotExported(subpath, pkgPath string) *ResolveError {
	return &ResolveError{Kind: KindPackagePathNotExported, Specifier: subpath, Path: pkgPath}
}

// PackageImportNotDefined builds the PackageImportNotDefined(spec,pkg)
// error.
func PackageImportNotDefined(specifier, pkgPath string) *ResolveError {
	return &ResolveError{Kind: KindPackageImportNotDefined, Specifier: specifier, Path: pkgPath}
}

// InvalidPackageTarget builds the InvalidPackageTarget error — target
// outside package or malformed.
func InvalidPackageTarget(specifier string) *ResolveError {
	return &ResolveError{Kind: KindInvalidPackageTarget, Specifier: specifier}
}

// ExtensionAliasInfo carries the tried-substitutes context for
// ExtensionAlias errors.
type ExtensionAliasInfo struct {
	File string
	Tried []string
	Dir   string
}

// ExtensionAlias builds the ExtensionAlias(file, tried, dir) error.
func ExtensionAlias(info ExtensionAliasInfo) *ResolveError {
	return &ResolveError{
		Kind:      KindExtensionAlias,
		Specifier: info.File,
		Path:      info.Dir,
		Underlying: fmt.Errorf("tried extensions %v", info.Tried),
	}
}

// MatchedAliasNotFound builds the MatchedAliasNotFound(spec, key) error.
func MatchedAliasNotFound(specifier, key string) *ResolveError {
	return &ResolveError{Kind: KindMatchedAliasNotFound, Specifier: specifier, Path: key}
}

// Specifier builds a specifier-parse failure error (empty specifier, etc).
func Specifier(reason string) *ResolveError {
	return &ResolveError{Kind: KindSpecifier, Specifier: reason}
}

// IO wraps an underlying file-system error.
func IO(path string, err error) *ResolveError {
	return &ResolveError{Kind: KindIO, Path: path, Underlying: err}
}

// Recoverable reports whether err is one of the two kinds that alias and
// fallback retries are allowed to swallow and try the next candidate for
// (§7 propagation policy): NotFound and MatchedAliasNotFound.
func Recoverable(err error) bool {
	var re *ResolveError
	if !asResolveError(err, &re) {
		return false
	}
	return re.Kind == KindNotFound || re.Kind == KindMatchedAliasNotFound
}

// IsIgnored reports whether err is an Ignored error — these must never be
// retried or swallowed by fallback, per §7.
func IsIgnored(err error) bool {
	var re *ResolveError
	if !asResolveError(err, &re) {
		return false
	}
	return re.Kind == KindIgnored
}

func asResolveError(err error, out **ResolveError) bool {
	for err != nil {
		if re, ok := err.(*ResolveError); ok {
			*out = re
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// MultiError aggregates multiple failures, used by the PnP fallback chain
// to report every branch's failure when all branches fail.
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping any nil entries.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors, per Go 1.20+ multi-error unwrapping.
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
