package port

// FileWalker resolves the source and header sets of a run.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes one discovered file. Path is slash-separated and
// relative to the walked root.
type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// FileReader reads files by root-relative path. A missing file yields an
// error matching fs.ErrNotExist.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// FileWriter writes files by root-relative path, creating parent
// directories as needed.
type FileWriter interface {
	WriteFile(path, content string) error
	Remove(path string) error
}
