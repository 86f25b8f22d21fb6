package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestWalker(t *testing.T) {
	root := writeTree(t, map[string]string{
		"parser.c":          "",
		"lexer.c":           "",
		"include/ast.h":     "",
		"build/gen.c":       "",
		"src/misc/helper.c": "",
		"README.md":         "",
	})

	files, err := NewWalker([]string{"*.c", "src/**/*.c"}, []string{"build/**"}).Walk(root)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"lexer.c", "parser.c", "src/misc/helper.c"}, paths)
}

func TestWalker_DefaultIncludes(t *testing.T) {
	root := writeTree(t, map[string]string{"a.c": "", "b.h": "", "d/e.c": ""})

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.c", files[0].Path)
	assert.Equal(t, "d/e.c", files[1].Path)
}

func TestGlob(t *testing.T) {
	root := writeTree(t, map[string]string{"a.c": "", "b.c": "", "c.h": ""})

	got, err := Glob(root, []string{"*.c", "a.c", "missing.c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "b.c", "missing.c"}, got)

	_, err = Glob(root, []string{"[a-"})
	assert.Error(t, err)
}

func TestTree(t *testing.T) {
	tree := NewTree(t.TempDir())

	require.NoError(t, tree.WriteFile("src/ast/ast.h", "x"))
	assert.True(t, tree.Exists("src/ast/ast.h"))

	got, err := tree.ReadFile("src/ast/ast.h")
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	require.NoError(t, tree.Remove("src/ast/ast.h"))
	_, err = tree.ReadFile("src/ast/ast.h")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, tree.Exists("src/ast"))
}

func TestBackup(t *testing.T) {
	root := writeTree(t, map[string]string{"parser.c": "int a;", "lib/lexer.c": "int b;"})
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	dir, missing, err := Backup(root, ".genesis/backups", []string{"parser.c", "lib/lexer.c", "gone.c"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, missing)
	assert.Equal(t, filepath.Join(root, ".genesis", "backups", "backup_20260304_050607"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "lib", "lexer.c"))
	require.NoError(t, err)
	assert.Equal(t, "int b;", string(data))

	_, _, err = Backup(root, ".genesis/backups", []string{"parser.c"}, now)
	assert.Error(t, err, "same timestamp must not overwrite an existing backup")
}
