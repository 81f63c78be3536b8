package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/goresolve/internal/cache"
	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
	"github.com/standardbeagle/goresolve/internal/tsconfig"
)

func TestStoreValueSharesParentChain(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/pkg/a.js", "")
	store := cache.NewStore(fs)

	leaf := store.Value("/proj/pkg/a.js")
	require.Equal(t, "/proj/pkg/a.js", leaf.Path())
	require.NotNil(t, leaf.Parent())
	require.Equal(t, "/proj/pkg", leaf.Parent().Path())

	again := store.Value("/proj/pkg")
	require.Same(t, leaf.Parent(), again)
}

func TestStoreValueConcurrentInsertDeduplicates(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/a.js", "")
	store := cache.NewStore(fs)

	var wg sync.WaitGroup
	results := make([]*cache.CachedPath, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Value("/proj/a.js")
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		require.Same(t, results[0], r)
	}
}

func TestCachedPathMetaMemoizes(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/a.js", "content")
	store := cache.NewStore(fs)
	ctx := resolvectx.New()

	cp := store.Value("/proj/a.js")
	require.True(t, cp.IsFile(fs, ctx))
	require.False(t, cp.IsDir(fs, ctx))
}

func TestStorePackageJSONRecordsDependencies(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/package.json", `{"name":"proj","type":"module"}`)
	store := cache.NewStore(fs)
	ctx := resolvectx.NewWithDependencyTracking()
	opts := options.Default()

	root := store.Value("/proj")
	pj, err := store.PackageJSON(root, &opts, ctx)
	require.NoError(t, err)
	require.NotNil(t, pj)
	require.Equal(t, "proj", pj.Name)
	require.Contains(t, ctx.FileDependencies(), "/proj/package.json")

	// Second call is served from the memoized slot but still records the
	// dependency.
	pj2, err := store.PackageJSON(root, &opts, ctx)
	require.NoError(t, err)
	require.Same(t, pj, pj2)
}

func TestStorePackageJSONMissingRecordsMissingDependency(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddDir("/proj")
	store := cache.NewStore(fs)
	ctx := resolvectx.NewWithDependencyTracking()
	opts := options.Default()

	root := store.Value("/proj")
	pj, err := store.PackageJSON(root, &opts, ctx)
	require.NoError(t, err)
	require.Nil(t, pj)
	require.Contains(t, ctx.MissingDependencies(), "/proj/package.json")
}

func TestStoreClearDropsEntries(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/a.js", "")
	store := cache.NewStore(fs)

	first := store.Value("/proj/a.js")
	store.Clear()
	second := store.Value("/proj/a.js")
	require.NotSame(t, first, second)
}

func TestStoreTsconfigMemoizesByPath(t *testing.T) {
	fs := fsutil.NewMemFileSystem()
	fs.AddFile("/proj/tsconfig.json", `{"compilerOptions":{"baseUrl":"."}}`)
	store := cache.NewStore(fs)

	calls := 0
	build := func() (*tsconfig.TsConfig, error) {
		calls++
		raw, err := fs.Read("/proj/tsconfig.json")
		require.NoError(t, err)
		return tsconfig.Parse(true, "/proj/tsconfig.json", raw)
	}

	first, err := store.Tsconfig("/proj/tsconfig.json", build)
	require.NoError(t, err)
	second, err := store.Tsconfig("/proj/tsconfig.json", build)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, calls)
}
