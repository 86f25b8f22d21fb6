package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// BackupName is the directory name of a snapshot taken at t.
func BackupName(t time.Time) string {
	return "backup_" + t.Format("20060102_150405")
}

// Backup copies paths (relative to root) into dir/backup_<timestamp>/,
// keeping their relative layout, and verifies the copy holds exactly as many
// files as were requested. Paths that do not exist are skipped; missing
// counts how many. It returns the backup directory.
func Backup(root, dir string, paths []string, now time.Time) (string, int, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dest := filepath.Join(dir, BackupName(now))
	if _, err := os.Stat(dest); err == nil {
		return "", 0, fmt.Errorf("backup %s already exists", dest)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", 0, fmt.Errorf("creating backup dir: %w", err)
	}

	copied, missing := 0, 0
	for _, p := range paths {
		src := filepath.Join(root, filepath.FromSlash(p))
		if _, err := os.Stat(src); os.IsNotExist(err) {
			missing++
			continue
		}
		if err := copyFile(src, filepath.Join(dest, filepath.FromSlash(p))); err != nil {
			return dest, missing, fmt.Errorf("backing up %s: %w", p, err)
		}
		copied++
	}

	n, err := countFiles(dest)
	if err != nil {
		return dest, missing, fmt.Errorf("verifying backup: %w", err)
	}
	if n != copied {
		return dest, missing, fmt.Errorf("backup holds %d files, expected %d", n, copied)
	}
	return dest, missing, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func countFiles(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}
