// Package listing renders bounded file listings of data directories.
package listing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFiles caps the number of listed paths per directory.
const MaxFiles = 50_000

// ListDir lists every regular file, or symlink to one, under dir, one relative forward-slash
// path per line, capped at MaxFiles. A missing or empty directory yields "".
func ListDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return ListFS(os.DirFS(dir), filepath.ToSlash(dir), MaxFiles)
}

// ListFS renders the listing for fsys, naming it label in the header.
func ListFS(fsys fs.FS, label string, max int) string {
	files := make([]string, 0)
	_ = doublestar.GlobWalk(fsys, "**", func(path string, d fs.DirEntry) error {
		if isRegular(fsys, path, d) {
			files = append(files, path)
		}
		return nil
	})
	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Data directory: %s\n", label)
	if len(files) > max {
		fmt.Fprintf(&b, "  (showing first %d of %d files)\n", max, len(files))
		files = files[:max]
	}
	b.WriteString(strings.Join(files, "\n"))
	b.WriteString("\n")
	return b.String()
}

// isRegular follows symlinks; dangling links are skipped.
func isRegular(fsys fs.FS, path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	info, err := fs.Stat(fsys, path)
	return err == nil && info.Mode().IsRegular()
}
