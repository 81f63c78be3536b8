package pnp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/goresolve/internal/pnp"
)

const sampleManifest = `{
  "packageRegistryData": [
    ["is-even", [
      ["npm:1.0.0", {"packageLocation": "./.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even/", "packageDependencies": {}}]
    ]],
    ["root", [
      ["workspace:.", {"packageLocation": "", "packageDependencies": {"is-even": "npm:1.0.0"}}]
    ]]
  ],
  "linkedFolders": {
    "lib": "shared"
  }
}`

func TestResolveByPackageName(t *testing.T) {
	m, err := pnp.Parse("/proj", []byte(sampleManifest))
	require.NoError(t, err)

	loc, ok := m.Resolve("", "is-even")
	require.True(t, ok)
	require.Equal(t, "/proj/.yarn/cache/is-even-npm-1.0.0.zip/node_modules/is-even", loc)
}

func TestResolveUnknownPackage(t *testing.T) {
	m, err := pnp.Parse("/proj", []byte(sampleManifest))
	require.NoError(t, err)

	_, ok := m.Resolve("", "totally-unknown")
	require.False(t, ok)
}

func TestResolveLinkedFolder(t *testing.T) {
	m, err := pnp.Parse("/proj", []byte(sampleManifest))
	require.NoError(t, err)

	got, ok := m.ResolveLinkedFolder("lib/lib.js")
	require.True(t, ok)
	require.Equal(t, "/proj/shared/lib.js", got)
}
