// Package files stores uploaded attachments and profile images on disk.
package files

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// URLPrefix is the static mount the stored files are served from.
const URLPrefix = "/uploads"

type Store struct {
	dir string
}

// New ensures the upload directory exists and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes the content under a collision-free name and returns the
// public reference (URLPrefix + "/" + name). Names are unique per write, so
// concurrent uploads never clobber each other.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	name := uniqueName(originalName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return URLPrefix + "/" + name, nil
}

// Delete removes a previously stored file given its public reference.
// Unknown or foreign refs are rejected so a crafted ref cannot escape the
// upload dir.
func (s *Store) Delete(ref string) error {
	name, ok := strings.CutPrefix(ref, URLPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("not an upload ref: %q", ref)
	}

	return os.Remove(filepath.Join(s.dir, name))
}

// uniqueName mirrors the usual "<millis>-<random><ext>" upload naming.
func uniqueName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))

	return fmt.Sprintf("%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1e9), ext)
}
