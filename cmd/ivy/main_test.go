package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sequences: {items: [a]}
tree: {tag: ol, children: [items]}
steps: [{op: append, sequence: items, value: b}]
`), 0644))

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ivy version")

	out, err = execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = execute(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, `s_items -- "0" --> tree`)

	out, err = execute(t, "run", "--pretty=false", "-q", path)
	require.NoError(t, err)
	assert.Contains(t, out, "- `<ol>`\n  - a\n  - b\n")
}
