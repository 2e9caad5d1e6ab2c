package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed-courses", "flows"}, names)
}

func TestFlowsList(t *testing.T) {
	t.Chdir(t.TempDir())
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"flows", "list"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "coding-assistant"))
}

func TestFlowsRunRejectsUnknownFlow(t *testing.T) {
	t.Chdir(t.TempDir())
	root := rootCmd()
	root.SetIn(strings.NewReader(`{}`))
	root.SetArgs([]string{"flows", "run", "no-such-flow"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flow")
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader(`{"a":1}`), "-")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"topic":"Go"}`), 0o600))
	got, err = readInput(nil, path)
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"Go"}`, string(got))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
