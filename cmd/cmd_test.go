package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCommandRendersDOT(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	input, err := filepath.Abs(filepath.Join("..", "internal", "parser", "testdata", "security_groups.json"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"graph", input, "--format", "dot", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	dot := out.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "digraph security_groups"), "unexpected output: %s", dot)
	assert.Contains(t, dot, "rankdir=LR")
}

func TestGenerateRandomPassword(t *testing.T) {
	password, err := generateRandomPassword(16)
	require.NoError(t, err)
	assert.Len(t, password, 16)
	for _, r := range password {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected character %q", r)
	}
}
