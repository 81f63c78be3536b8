package resolverconfig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/goresolve/internal/resolverconfig"
)

const sampleTOML = `
extensions = [".ts", ".js"]
main_fields = ["module", "main"]
symlinks = false
enable_pnp = true

[tsconfig]
config_file = "tsconfig.json"
`

func TestLoadTOML(t *testing.T) {
	opts, err := resolverconfig.LoadTOML([]byte(sampleTOML))
	require.NoError(t, err)
	require.Equal(t, []string{".ts", ".js"}, opts.Extensions)
	require.Equal(t, []string{"module", "main"}, opts.MainFields)
	require.False(t, opts.Symlinks)
	require.True(t, opts.EnablePnp)
	require.NotNil(t, opts.Tsconfig)
	require.Equal(t, "tsconfig.json", opts.Tsconfig.ConfigFile)
}

const sampleKDL = `
extensions ".mjs" ".js"
symlinks #true
tsconfig {
    config_file "tsconfig.json"
}
`

func TestLoadKDL(t *testing.T) {
	opts, err := resolverconfig.LoadKDL([]byte(sampleKDL))
	require.NoError(t, err)
	require.Equal(t, []string{".mjs", ".js"}, opts.Extensions)
	require.True(t, opts.Symlinks)
	require.NotNil(t, opts.Tsconfig)
	require.Equal(t, "tsconfig.json", opts.Tsconfig.ConfigFile)
}

func TestValidateTOMLRejectsWrongType(t *testing.T) {
	err := resolverconfig.ValidateTOML([]byte(`extensions = "not-an-array"`))
	require.Error(t, err)
}

func TestValidateTOMLAcceptsWellFormed(t *testing.T) {
	err := resolverconfig.ValidateTOML([]byte(sampleTOML))
	require.NoError(t, err)
}

func TestValidateKDLRejectsWrongType(t *testing.T) {
	err := resolverconfig.ValidateKDL([]byte(`symlinks "not-a-bool"`))
	require.Error(t, err)
}

func TestValidateKDLAcceptsWellFormed(t *testing.T) {
	err := resolverconfig.ValidateKDL([]byte(sampleKDL))
	require.NoError(t, err)
}

func TestLoadTOMLRejectsMalformedDocument(t *testing.T) {
	_, err := resolverconfig.LoadTOML([]byte(`extensions = "not-an-array"`))
	require.Error(t, err)
}

func TestLoadKDLRejectsMalformedDocument(t *testing.T) {
	_, err := resolverconfig.LoadKDL([]byte(`symlinks "not-a-bool"`))
	require.Error(t, err)
}

func TestDefaultResolveOptions(t *testing.T) {
	opts := resolverconfig.DefaultResolveOptions()
	require.Contains(t, opts.Extensions, ".js")
}
