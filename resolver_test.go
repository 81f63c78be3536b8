package goresolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	goresolve "github.com/standardbeagle/goresolve"
	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, files map[string]string, opts options.ResolveOptions) *goresolve.Engine {
	t.Helper()
	fs := fsutil.NewMemFileSystemFrom(files)
	return goresolve.NewWithFileSystem(fs, opts)
}

func TestResolveRelativeFile(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/index.js": "module.exports = 1;",
		"/proj/lib.js":   "module.exports = 2;",
	}, options.Default())

	res, err := e.Resolve("/proj", "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib.js", res.Path)
}

func TestResolveRelativeWithExtension(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/index.js": "x",
		"/proj/lib.js":   "y",
	}, options.Default())

	res, err := e.Resolve("/proj", "./lib")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib.js", res.Path)
}

func TestResolveDirectoryIndex(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/lib/index.js": "x",
	}, options.Default())

	res, err := e.Resolve("/proj", "./lib")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib/index.js", res.Path)
}

func TestResolveBarePackageMain(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{"name":"foo","main":"./dist/foo.js"}`,
		"/proj/node_modules/foo/dist/foo.js":  "x",
	}, options.Default())

	res, err := e.Resolve("/proj", "foo")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/foo/dist/foo.js", res.Path)
	require.NotNil(t, res.PackageJson)
	assert.Equal(t, "foo", res.PackageJson.Name)
}

func TestResolveWalksUpNodeModules(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{"name":"foo","main":"index.js"}`,
		"/proj/node_modules/foo/index.js":     "x",
	}, options.Default())

	res, err := e.Resolve("/proj/src/nested", "foo")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/foo/index.js", res.Path)
}

func TestResolveSubpathExportsMap(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{
			"name": "foo",
			"exports": {
				".": "./index.js",
				"./feature": "./feature.js"
			}
		}`,
		"/proj/node_modules/foo/index.js":   "x",
		"/proj/node_modules/foo/feature.js": "y",
	}, options.Default())

	res, err := e.Resolve("/proj", "foo/feature")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/foo/feature.js", res.Path)
}

func TestResolveExportsPathNotExported(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{
			"name": "foo",
			"exports": { ".": "./index.js" }
		}`,
		"/proj/node_modules/foo/index.js":  "x",
		"/proj/node_modules/foo/hidden.js": "y",
	}, options.Default())

	_, err := e.Resolve("/proj", "foo/hidden")
	require.Error(t, err)
}

func TestResolveConditionalExports(t *testing.T) {
	opts := options.Default()
	opts.ConditionNames = []string{"browser", "require"}
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{
			"name": "foo",
			"exports": {
				".": { "browser": "./browser.js", "default": "./index.js" }
			}
		}`,
		"/proj/node_modules/foo/browser.js": "x",
		"/proj/node_modules/foo/index.js":   "y",
	}, opts)

	res, err := e.Resolve("/proj", "foo")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/foo/browser.js", res.Path)
}

func TestResolvePackageImports(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/package.json": `{
			"name": "proj",
			"imports": { "#utils": "./src/utils.js" }
		}`,
		"/proj/src/utils.js": "x",
		"/proj/src/main.js":  "y",
	}, options.Default())

	res, err := e.Resolve("/proj/src", "#utils")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/utils.js", res.Path)
}

func TestResolveAlias(t *testing.T) {
	opts := options.Default()
	opts.Alias = []options.AliasEntry{
		{Key: "@lib", Values: []options.AliasValue{{Path: "/proj/src/lib"}}},
	}
	e := newEngine(t, map[string]string{
		"/proj/src/lib/index.js": "x",
	}, opts)

	res, err := e.Resolve("/proj", "@lib")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/lib/index.js", res.Path)
}

func TestResolveAliasIgnore(t *testing.T) {
	opts := options.Default()
	opts.Alias = []options.AliasEntry{
		{Key: "ignored-thing$", Values: []options.AliasValue{{Ignore: true}}},
	}
	e := newEngine(t, map[string]string{
		"/proj/node_modules/ignored-thing/index.js": "x",
	}, opts)

	_, err := e.Resolve("/proj", "ignored-thing")
	require.Error(t, err)
}

func TestResolveExtensionAlias(t *testing.T) {
	opts := options.Default()
	opts.ExtensionAlias = map[string][]string{".js": {".ts"}}
	e := newEngine(t, map[string]string{
		"/proj/lib.ts": "x",
	}, opts)

	res, err := e.Resolve("/proj", "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib.ts", res.Path)
}

func TestResolveNotFound(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/index.js": "x",
	}, options.Default())

	_, err := e.Resolve("/proj", "./missing")
	require.Error(t, err)
}

func TestResolveNotFoundSuggestsSimilarSibling(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/widget.js": "x",
	}, options.Default())

	_, err := e.Resolve("/proj", "./widgte.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget.js")
}

func TestResolveBarePackageNotFound(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/lodash/package.json": `{"name":"lodash","main":"index.js"}`,
		"/proj/node_modules/lodash/index.js":     "x",
	}, options.Default())

	_, err := e.Resolve("/proj", "lodahs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lodash")
}

func TestResolveBuiltinModule(t *testing.T) {
	opts := options.Default()
	opts.BuiltinModules = true
	e := newEngine(t, map[string]string{
		"/proj/index.js": "x",
	}, opts)

	_, err := e.Resolve("/proj", "fs")
	require.Error(t, err)
}

func TestResolveRoots(t *testing.T) {
	opts := options.Default()
	opts.Roots = []string{"/proj/public"}
	e := newEngine(t, map[string]string{
		"/proj/public/assets/logo.js": "x",
	}, opts)

	res, err := e.Resolve("/proj/src", "/assets/logo.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/public/assets/logo.js", res.Path)
}

func TestResolveQueryAndFragment(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/lib.js": "x",
	}, options.Default())

	res, err := e.Resolve("/proj", "./lib.js?foo=bar#frag")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib.js", res.Path)
	assert.Equal(t, "?foo=bar", res.Query)
	assert.Equal(t, "#frag", res.Fragment)
}

func TestResolveWithContextTracksDependencies(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/lib.js": "x",
	}, options.Default())

	res, ctxResult, err := e.ResolveWithContext("/proj", "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/lib.js", res.Path)
	assert.Contains(t, ctxResult.FileDependencies, "/proj/lib.js")
}

func TestResolveRestrictions(t *testing.T) {
	opts := options.Default()
	opts.Restrictions = []options.Restriction{{Pattern: "/proj/src"}}
	e := newEngine(t, map[string]string{
		"/proj/src/lib.js":   "x",
		"/proj/other/lib.js": "y",
	}, opts)

	res, err := e.Resolve("/proj/src", "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/lib.js", res.Path)

	_, err = e.Resolve("/proj/other", "./lib.js")
	require.Error(t, err)
}

func TestCloneWithOptionsSharesCache(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/node_modules/foo/package.json": `{"name":"foo","main":"index.js"}`,
		"/proj/node_modules/foo/index.js":     "x",
	}, options.Default())

	_, err := e.Resolve("/proj", "foo")
	require.NoError(t, err)

	cloneOpts := options.Default()
	cloneOpts.BuiltinModules = true
	clone := e.CloneWithOptions(cloneOpts)
	res, err := clone.Resolve("/proj", "foo")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/foo/index.js", res.Path)
}

func TestResolutionModuleType(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/package.json": `{"name":"proj","type":"module"}`,
		"/proj/index.js":     "x",
	}, options.Default())

	res, err := e.Resolve("/proj", "./index.js")
	require.NoError(t, err)
	assert.Equal(t, pkgjson.ModuleTypeModule, res.ModuleType())
}

func TestResolutionModuleTypeUnsetWithoutPackageJSON(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/proj/index.js": "x",
	}, options.Default())

	res, err := e.Resolve("/proj", "./index.js")
	require.NoError(t, err)
	assert.Equal(t, pkgjson.ModuleTypeUnset, res.ModuleType())
}

func TestResolveTsconfigPaths(t *testing.T) {
	opts := options.Default()
	opts.Tsconfig = &options.TsconfigOptions{ConfigFile: "/proj/tsconfig.json"}
	e := newEngine(t, map[string]string{
		"/proj/tsconfig.json": `{
			"compilerOptions": {
				"baseUrl": ".",
				"paths": { "@app/*": ["src/*"] }
			}
		}`,
		"/proj/src/widget.js": "x",
	}, opts)

	res, err := e.Resolve("/proj", "@app/widget")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/widget.js", res.Path)
}

const samplePnpManifest = `{
  "packageRegistryData": [
    ["is-even", [
      ["npm:1.0.0", {"packageLocation": "./.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even/", "packageDependencies": {}}]
    ]]
  ],
  "linkedFolders": {}
}`

func TestResolvePnpPackage(t *testing.T) {
	opts := options.Default()
	opts.EnablePnp = true
	e := newEngine(t, map[string]string{
		"/proj/.pnp.data.json": samplePnpManifest,
		"/proj/.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even/package.json": `{"name":"is-even","main":"./index.js"}`,
		"/proj/.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even/index.js":    "module.exports = 1;",
	}, opts)

	res, err := e.Resolve("/proj", "is-even")
	require.NoError(t, err)
	assert.Equal(t, "/proj/.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even/index.js", res.Path)
}

func TestResolvePnpManifestPresentButPackageMissFallsThroughToNodeModules(t *testing.T) {
	opts := options.Default()
	opts.EnablePnp = true
	e := newEngine(t, map[string]string{
		"/proj/.pnp.data.json":                 samplePnpManifest,
		"/proj/node_modules/left-pad/package.json": `{"name":"left-pad","main":"./index.js"}`,
		"/proj/node_modules/left-pad/index.js":     "module.exports = 1;",
	}, opts)

	res, err := e.Resolve("/proj", "left-pad")
	require.NoError(t, err)
	assert.Equal(t, "/proj/node_modules/left-pad/index.js", res.Path)
}

func TestResolveThroughSymlinkedAncestor(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/real/foo.js", "module.exports = 1;")
	fs.AddSymlink("/proj/link", "/proj/real")

	e := goresolve.NewWithFileSystem(fs, options.Default())

	res, err := e.Resolve("/proj/link", "./foo.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/real/foo.js", res.Path)
}

func TestResolveThroughSymlinkedAncestorWithoutFollowingSymlinks(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/real/foo.js", "module.exports = 1;")
	fs.AddSymlink("/proj/link", "/proj/real")

	opts := options.Default()
	opts.Symlinks = false
	e := goresolve.NewWithFileSystem(fs, opts)

	res, err := e.Resolve("/proj/link", "./foo.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/link/foo.js", res.Path)
}
