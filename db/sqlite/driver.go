package sqlite

import (
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InMemory reports whether path names an in-memory database.
func InMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Dialector returns the sqlite dialector for path, creating the parent
// directory of file databases first.
func Dialector(path string) (gorm.Dialector, error) {
	if !InMemory(path) {
		file := strings.TrimPrefix(path, "file:")
		if i := strings.IndexByte(file, '?'); i >= 0 {
			file = file[:i]
		}
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	return sqlite.Open(path), nil
}
