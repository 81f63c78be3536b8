// Package resolvectx holds the per-call mutable state threaded through one
// resolution (§3 ResolveContext, §9 "Lazy slots"/"Cyclic aliases").
package resolvectx

// MaxDepth bounds recursive re-entry into the engine (§5 "Recursion bound").
const MaxDepth = 128

// Context is mutable, per-resolution state. It is never shared between
// concurrent calls to Resolve.
type Context struct {
	Query    string
	Fragment string

	// FullySpecified propagates through recursive require() calls; ESM mode
	// forbids extension-less resolution when true.
	FullySpecified bool

	// ResolvingAlias is the most recent browser-field alias target, used to
	// break `{"./a": "./a"}` self-reference cycles (§9).
	ResolvingAlias string

	Depth int

	collectDeps bool
	fileDeps    []string
	fileSeen    map[string]bool
	missingDeps []string
	missingSeen map[string]bool
}

// New returns a fresh context for one top-level Resolve call.
func New() *Context {
	return &Context{}
}

// NewWithDependencyTracking returns a context that also records every path
// stat'd, for ResolveWithContext callers (§6).
func NewWithDependencyTracking() *Context {
	return &Context{
		collectDeps: true,
		fileSeen:    make(map[string]bool),
		missingSeen: make(map[string]bool),
	}
}

// WithQueryFragment records the query/fragment captured at parse time.
func (c *Context) WithQueryFragment(query, fragment string) {
	c.Query = query
	c.Fragment = fragment
}

// WithFullySpecified sets the propagated fully-specified flag.
func (c *Context) WithFullySpecified(v bool) { c.FullySpecified = v }

// WithResolvingAlias records the alias target currently being chased.
func (c *Context) WithResolvingAlias(target string) { c.ResolvingAlias = target }

// Enter increments the recursion depth and reports whether the configured
// maximum has been exceeded.
func (c *Context) Enter() bool {
	c.Depth++
	return c.Depth > MaxDepth
}

// Exit decrements the recursion depth on the way back out.
func (c *Context) Exit() { c.Depth-- }

// AddFileDependency records a path that was found to exist.
func (c *Context) AddFileDependency(path string) {
	if !c.collectDeps || c.fileSeen[path] {
		return
	}
	c.fileSeen[path] = true
	c.fileDeps = append(c.fileDeps, path)
}

// AddMissingDependency records a path that was stat'd and did not exist.
func (c *Context) AddMissingDependency(path string) {
	if !c.collectDeps || c.missingSeen[path] {
		return
	}
	c.missingSeen[path] = true
	c.missingDeps = append(c.missingDeps, path)
}

// FileDependencies returns every path that was stat'd and existed, in the
// order first observed.
func (c *Context) FileDependencies() []string { return c.fileDeps }

// MissingDependencies returns every path that was stat'd and did not exist,
// in the order first observed.
func (c *Context) MissingDependencies() []string { return c.missingDeps }
