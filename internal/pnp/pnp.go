// Package pnp implements a reduced Yarn Plug'n'Play overlay: given a
// `.pnp.data.json` manifest, it maps a bare package name (and the locator
// of the package resolving it) to the on-disk or zip-backed location that
// package was installed at, so the engine can short-circuit the normal
// node_modules walk (§9 "resolve_pnp", grounded on
// original_source/src/tests/pnp.rs).
//
// This is not a complete Yarn PnP implementation: it resolves the
// registry/location mapping a manifest publishes, but does not evaluate
// Yarn's full per-locator dependency-tree restriction (a package may only
// require its own declared dependencies). Every registered location for a
// requested name is a candidate; the first is preferred, as real manifests
// register the hoisted/primary instance first.
package pnp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/pathutil"
)

// Location is one registered install location for a package reference.
type Location struct {
	Reference        string
	PackageLocation  string // relative to the manifest's directory
	PackageDependencies map[string]string
}

// Manifest is a parsed `.pnp.data.json`.
type Manifest struct {
	dir    string
	byName map[string][]Location
	// linkedFolders maps a specifier prefix (e.g. "lib") to a directory
	// relative to dir (e.g. "shared") outside node_modules entirely,
	// covering workspace/"portal:" packages the dependency tree roots
	// point straight at (resolve_in_pnp_linked_folder).
	linkedFolders map[string]string
}

// Load parses the manifest at path (a `.pnp.data.json`-shaped document) via
// fs, rooting relative package locations at the manifest's own directory.
func Load(fs fsutil.FileSystem, path string) (*Manifest, error) {
	raw, err := fs.Read(path)
	if err != nil {
		return nil, err
	}
	return Parse(pathutil.Normalize(dirOf(path)), raw)
}

// Parse decodes manifest JSON already read from disk, rooted at dir.
func Parse(dir string, raw []byte) (*Manifest, error) {
	var doc struct {
		PackageRegistryData [][2]json.RawMessage `json:"packageRegistryData"`
		FallbackPool        [][2]json.RawMessage `json:"fallbackPool"`
		LinkedFolders       map[string]string     `json:"linkedFolders"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("pnp manifest: %w", err)
	}

	m := &Manifest{dir: dir, byName: make(map[string][]Location), linkedFolders: doc.LinkedFolders}

	for _, entry := range doc.PackageRegistryData {
		var name *string
		if err := json.Unmarshal(entry[0], &name); err != nil || name == nil {
			continue
		}
		var refs [][2]json.RawMessage
		if err := json.Unmarshal(entry[1], &refs); err != nil {
			continue
		}
		for _, ref := range refs {
			var reference string
			if err := json.Unmarshal(ref[0], &reference); err != nil {
				continue
			}
			var info struct {
				PackageLocation     string            `json:"packageLocation"`
				PackageDependencies map[string]string `json:"packageDependencies"`
			}
			if err := json.Unmarshal(ref[1], &info); err != nil {
				continue
			}
			if info.PackageLocation == "" {
				continue // the "root" self-entry has no installable location
			}
			m.byName[*name] = append(m.byName[*name], Location{
				Reference:           reference,
				PackageLocation:     info.PackageLocation,
				PackageDependencies: info.PackageDependencies,
			})
		}
	}
	return m, nil
}

func dirOf(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

// Resolve returns the absolute directory a bare package name should be
// loaded from, if the manifest registers one. fromLocator is the
// PackageLocation of the package currently performing the require. Because
// locatorSelfName cannot map a location back to a package name, fromLocator
// does not change the result: the first registered location is returned.
func (m *Manifest) Resolve(fromLocator, packageName string) (string, bool) {
	if m == nil {
		return "", false
	}
	locs, ok := m.byName[packageName]
	if !ok || len(locs) == 0 {
		return "", false
	}
	abs := func(location string) string {
		p := pathutil.NormalizeWith(m.dir, location)
		if len(p) > 1 {
			p = strings.TrimSuffix(p, "/")
		}
		return p
	}
	if fromLocator != "" {
		if fromLocs, ok := m.byName[locatorSelfName(fromLocator)]; ok {
			for _, fl := range fromLocs {
				if dep, ok := fl.PackageDependencies[packageName]; ok {
					for _, candidate := range locs {
						if candidate.Reference == dep {
							return abs(candidate.PackageLocation), true
						}
					}
				}
			}
		}
	}
	return abs(locs[0].PackageLocation), true
}

// locatorSelfName is a placeholder: without a reverse locator index, the
// current requester's own package name can't be recovered from its
// location alone. Real Yarn PnP embeds a locator in every resolved path;
// this reduced manifest does not, so it always returns "" and Resolve
// always falls back to the first registered location.
func locatorSelfName(string) string { return "" }

// ResolveLinkedFolder returns an absolute path if specifier begins with a
// registered linked-folder prefix (workspace/"portal:" packages resolved
// straight to a source directory rather than through node_modules).
func (m *Manifest) ResolveLinkedFolder(specifier string) (string, bool) {
	if m == nil {
		return "", false
	}
	for prefix, target := range m.linkedFolders {
		if specifier == prefix || strings.HasPrefix(specifier, prefix+"/") {
			rest := strings.TrimPrefix(strings.TrimPrefix(specifier, prefix), "/")
			base := pathutil.NormalizeWith(m.dir, target)
			if rest == "" {
				return base, true
			}
			return pathutil.NormalizeWith(base, rest), true
		}
	}
	return "", false
}
