package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsEmptyPathUsesDefaults(t *testing.T) {
	opts, err := loadOptions("")
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules"}, opts.Modules)
}

func TestLoadOptionsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.toml")
	require.NoError(t, os.WriteFile(path, []byte(`extensions = [".mjs", ".js"]`), 0o644))

	opts, err := loadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".mjs", ".js"}, opts.Extensions)
}

func TestLoadOptionsMissingFileErrors(t *testing.T) {
	_, err := loadOptions(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
}

func TestJSONResult(t *testing.T) {
	res, err := jsonResult(map[string]interface{}{"success": true, "path": "/proj/lib.js"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.Equal(t, "/proj/lib.js", decoded["path"])
}

func TestErrorResult(t *testing.T) {
	res := errorResult("resolve", assert.AnError)
	assert.True(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "resolve")
}
