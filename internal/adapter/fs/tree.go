package fs

import (
	"os"
	"path/filepath"
)

// Tree reads and writes files addressed by slash-separated paths relative to
// a root directory.
type Tree struct {
	root string
}

func NewTree(root string) *Tree {
	return &Tree{root: root}
}

func (t *Tree) Root() string {
	return t.root
}

func (t *Tree) abs(path string) string {
	return filepath.Join(t.root, filepath.FromSlash(path))
}

func (t *Tree) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(t.abs(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content, creating parent directories.
func (t *Tree) WriteFile(path, content string) error {
	full := t.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0644)
}

func (t *Tree) Remove(path string) error {
	return os.Remove(t.abs(path))
}

// Exists reports whether path names an existing regular file.
func (t *Tree) Exists(path string) bool {
	info, err := os.Stat(t.abs(path))
	return err == nil && info.Mode().IsRegular()
}
