package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracle-rag/oracle/internal/obslog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverSkipsHardcodedIgnoreDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = {}\n")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	got, err := Discover(root, Options{}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "main.go")}, got)
}

func TestDiscoverHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\nsecrets/\n")
	writeFile(t, filepath.Join(root, "app.go"), "package app\n")
	writeFile(t, filepath.Join(root, "debug.log"), "noisy\n")
	writeFile(t, filepath.Join(root, "secrets", "keys.txt"), "shh\n")

	got, err := Discover(root, Options{}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "app.go")}, got)
}

func TestDiscoverSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.go"), "package small\n")
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, filepath.Join(root, "big.go"), string(big))

	got, err := Discover(root, Options{MaxBytes: 10}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "small.go")}, got)
}

func TestDiscoverSkipsBinaryContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "text.go"), "package text\n")
	binPath := filepath.Join(root, "blob.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 'a', 'b'}, 0o644))

	got, err := Discover(root, Options{}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "text.go")}, got)
}

func TestDiscoverSkipsGeneratedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "manual.go"), "package manual\n")
	writeFile(t, filepath.Join(root, "gen.go"), "// Code generated by protoc-gen-go. DO NOT EDIT.\npackage gen\n")

	got, err := Discover(root, Options{}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "manual.go")}, got)
}

func TestDiscoverRejectsMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), Options{}, obslog.Discard())
	assert.Error(t, err)
}

func TestDiscoverRejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.txt")
	writeFile(t, path, "not a directory\n")

	_, err := Discover(path, Options{}, obslog.Discard())
	assert.Error(t, err)
}

func TestDiscoverExtraIgnoreDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.go"), "package keep\n")
	writeFile(t, filepath.Join(root, "fixtures", "data.go"), "package fixtures\n")

	got, err := Discover(root, Options{ExtraIgnoreDirs: []string{"fixtures"}}, obslog.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "keep.go")}, got)
}

func TestDiscoverReturnsSortedPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z.go"), "package z\n")
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")
	writeFile(t, filepath.Join(root, "m", "b.go"), "package m\n")

	got, err := Discover(root, Options{}, obslog.Discard())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0] < got[1] && got[1] < got[2])
}
