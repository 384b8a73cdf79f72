// Package uploads persists photo uploads under a content path served back by
// a static prefix. No deduplication or cleanup is performed.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path prefix uploaded files are served under.
const PublicPrefix = "/uploads"

// Store writes uploaded files to a local directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore constructs a Store, creating the directory when needed.
func NewStore(dir string) (*Store, error) {
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", errMkdir)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the content under a name derived from the capture instant and
// the original filename, and returns the public path it is served from.
func (s *Store) Save(content []byte, filename string) (string, error) {
	name := sanitizeFilename(filename)
	stored := fmt.Sprintf("%d_%s_%s", s.now().Unix(), uuid.NewString()[:8], name)

	if errWrite := os.WriteFile(filepath.Join(s.dir, stored), content, 0o644); errWrite != nil {
		return "", fmt.Errorf("uploads: write file: %w", errWrite)
	}
	return PublicPrefix + "/" + stored, nil
}

// sanitizeFilename keeps only the base name and guards against empty or
// path-escaping input.
func sanitizeFilename(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "img.jpg"
	}
	return name
}
