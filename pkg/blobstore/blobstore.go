// Package blobstore stores uploaded product images and artifacts as files.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"storefront/internal/errs"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// Store keeps blobs under a single directory of an afero filesystem. A blob ref is a
// random UUID followed by the upload's file extension.
type Store struct {
	fs  afero.Fs
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// NewOS creates a Store on the local disk.
func NewOS(dir string) (*Store, error) {
	return New(afero.NewOsFs(), dir)
}

// Save writes data and returns its ref. ext is kept when it looks like a file
// extension and dropped otherwise.
func (s *Store) Save(ctx context.Context, data []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = strings.ToLower(ext)
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	ref := uuid.NewString() + ext
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", ref, err)
	}
	return ref, nil
}

// Open returns the content of ref.
func (s *Store) Open(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validRef(ref) {
		return nil, fmt.Errorf("blob %q: %w", ref, errs.ErrNotFound)
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", ref, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", ref, err)
	}
	return data, nil
}

func validRef(ref string) bool {
	ext := filepath.Ext(ref)
	if ext != "" && !extPattern.MatchString(ext) {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(ref, ext))
	return err == nil
}
