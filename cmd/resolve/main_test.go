package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAliasFlag(t *testing.T) {
	entry, err := parseAliasFlag("@lib=/proj/src/lib")
	require.NoError(t, err)
	assert.Equal(t, "@lib", entry.Key)
	require.Len(t, entry.Values, 1)
	assert.Equal(t, "/proj/src/lib", entry.Values[0].Path)
	assert.False(t, entry.Values[0].Ignore)
}

func TestParseAliasFlagIgnore(t *testing.T) {
	entry, err := parseAliasFlag("some-module=false")
	require.NoError(t, err)
	require.Len(t, entry.Values, 1)
	assert.True(t, entry.Values[0].Ignore)
}

func TestParseAliasFlagInvalid(t *testing.T) {
	_, err := parseAliasFlag("no-equals-sign")
	require.Error(t, err)
}

func TestLoadConfigFileMissingFallsBackToDefaults(t *testing.T) {
	opts, err := loadConfigFile(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, []string{".js", ".json", ".node"}, opts.Extensions)
}

func TestLoadConfigFileEmptyPathUsesDefaults(t *testing.T) {
	opts, err := loadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules"}, opts.Modules)
}

func TestLoadConfigFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.toml")
	require.NoError(t, os.WriteFile(path, []byte(`extensions = [".ts", ".js"]`), 0o644))

	opts, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".ts", ".js"}, opts.Extensions)
}
