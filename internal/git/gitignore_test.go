package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureEntriesCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")

	added, err := EnsureEntries(path, []string{".vpc-visualizer.yaml", "neo4j-data/"})
	require.NoError(t, err)
	assert.Equal(t, []string{".vpc-visualizer.yaml", "neo4j-data/"}, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".vpc-visualizer.yaml\nneo4j-data/\n", string(data))
}

func TestEnsureEntriesKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("bin/\n  neo4j-data/  "), 0644))

	added, err := EnsureEntries(path, []string{".vpc-visualizer.yaml", "neo4j-data/", ".vpc-visualizer.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{".vpc-visualizer.yaml"}, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bin/\n  neo4j-data/  \n.vpc-visualizer.yaml\n", string(data))

	added, err = EnsureEntries(path, []string{".vpc-visualizer.yaml", "neo4j-data/"})
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestIsRepositoryOutsideWorkTree(t *testing.T) {
	assert.False(t, IsRepository(t.TempDir()))
}
