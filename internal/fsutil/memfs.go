package fsutil

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
)

// MemFileSystem is an in-memory FileSystem used by resolver tests —
// grounded on the teacher's original MemoryFS test fixture. Paths are
// POSIX-style and must be absolute ("/..."). A symlink entry maps a path to
// another path in the same tree.
type MemFileSystem struct {
	mu       sync.RWMutex
	files    map[string]string
	dirs     map[string]bool
	symlinks map[string]string
}

// NewMemFileSystem builds an empty in-memory file system.
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{
		files:    make(map[string]string),
		dirs:     map[string]bool{"/": true},
		symlinks: make(map[string]string),
	}
}

// NewMemFileSystemFrom builds an in-memory file system pre-populated with
// path/content pairs, mirroring the Rust fixture's `MemoryFS::new`.
func NewMemFileSystemFrom(data map[string]string) *MemFileSystem {
	fs := NewMemFileSystem()
	for p, content := range data {
		fs.AddFile(p, content)
	}
	return fs
}

// AddFile writes content at path, creating parent directories as needed.
func (m *MemFileSystem) AddFile(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureDirsLocked(path.Dir(p))
	m.files[p] = content
}

// AddDir marks p (and its ancestors) as an existing directory.
func (m *MemFileSystem) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureDirsLocked(p)
}

// AddSymlink records that p is a symlink pointing at target.
func (m *MemFileSystem) AddSymlink(p, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureDirsLocked(path.Dir(p))
	m.symlinks[p] = target
}

func (m *MemFileSystem) ensureDirsLocked(p string) {
	for {
		if m.dirs[p] {
			return
		}
		m.dirs[p] = true
		parent := path.Dir(p)
		if parent == p {
			return
		}
		p = parent
	}
}

func (m *MemFileSystem) Read(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if content, ok := m.files[p]; ok {
		return []byte(content), nil
	}
	return nil, notExist(p)
}

func (m *MemFileSystem) ReadToString(p string) (string, error) {
	b, err := m.Read(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *MemFileSystem) Metadata(p string) (Metadata, error) {
	resolved, err := m.Canonicalize(p)
	if err != nil {
		// Canonicalize only fails on a symlink cycle; metadata then
		// proceeds on p itself.
		resolved = p
	}
	return m.statAt(resolved, p)
}

// SymlinkMetadata reports lstat-style metadata: the final path component is
// not itself followed through a symlink, but every ancestor directory is, so
// a plain file sitting beneath a symlinked directory is still found.
func (m *MemFileSystem) SymlinkMetadata(p string) (Metadata, error) {
	dir := path.Dir(p)
	resolvedDir, err := m.Canonicalize(dir)
	if err != nil {
		resolvedDir = dir
	}
	full := path.Join(resolvedDir, path.Base(p))

	m.mu.RLock()
	_, isSymlink := m.symlinks[full]
	m.mu.RUnlock()
	if isSymlink {
		return Metadata{IsSymlink: true}, nil
	}
	return m.statAt(full, p)
}

func (m *MemFileSystem) statAt(resolved, original string) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[resolved]; ok {
		return Metadata{IsFile: true}, nil
	}
	if m.dirs[resolved] {
		return Metadata{IsDir: true}, nil
	}
	return Metadata{}, notExist(original)
}

// Canonicalize resolves p one path component at a time, following any
// symlink found at each ancestor directory (not just an exact match on the
// full path), mirroring realpath's per-component walk. A symlinked ancestor
// is followed even when the final component is an ordinary file or
// directory beneath it.
func (m *MemFileSystem) Canonicalize(p string) (string, error) {
	components := strings.Split(strings.TrimPrefix(p, "/"), "/")
	resolved := "/"
	for _, c := range components {
		if c == "" || c == "." {
			continue
		}
		next, err := m.resolveSymlinkChain(path.Join(resolved, c))
		if err != nil {
			return "", err
		}
		resolved = next
	}
	return resolved, nil
}

// resolveSymlinkChain follows p's own symlink chain, if any, with cycle
// detection. It does not decompose p itself; callers build p up one
// component at a time so every ancestor has already been resolved.
func (m *MemFileSystem) resolveSymlinkChain(p string) (string, error) {
	seen := make(map[string]bool)
	cur := p
	for {
		m.mu.RLock()
		target, ok := m.symlinks[cur]
		m.mu.RUnlock()
		if !ok {
			return cur, nil
		}
		if seen[cur] {
			return "", fmt.Errorf("symlink cycle at %s", p)
		}
		seen[cur] = true
		if !strings.HasPrefix(target, "/") {
			target = path.Join(path.Dir(cur), target)
		}
		cur = target
	}
}

func (m *MemFileSystem) ReadDir(p string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.dirs[p] {
		return nil, notExist(p)
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := make(map[string]bool)
	var names []string
	add := func(full string) {
		rest := strings.TrimPrefix(full, prefix)
		if rest == "" || rest == full {
			return
		}
		name := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name = rest[:idx]
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for f := range m.files {
		add(f)
	}
	for d := range m.dirs {
		add(d)
	}
	for s := range m.symlinks {
		add(s)
	}
	return names, nil
}

func notExist(p string) error {
	return &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
}
