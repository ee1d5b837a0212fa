// Package imagestore keeps the latest (annotated) still of every camera
// under a stable reference so the query surface can serve it.
package imagestore

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// Store writes images into a directory of an afero filesystem
type Store struct {
	fs  afero.Fs
	dir string
}

// New creates a store rooted at dir, creating the directory if needed
func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create image directory: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// NewOS creates a store on the local disk
func NewOS(dir string) (*Store, error) {
	return New(afero.NewOsFs(), dir)
}

// Ref builds the reference of a camera's still: "<id>_<description>.jpg"
// with spaces replaced by underscores. Path separators are replaced too.
func Ref(cameraID int64, description string) string {
	return strconv.FormatInt(cameraID, 10) + "_" + refReplacer.Replace(description) + ".jpg"
}

var refReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// Save replaces the image stored under ref. The write goes to a temporary
// file first so readers never see a partial image.
func (s *Store) Save(ref string, data []byte) error {
	name, err := s.path(ref)
	if err != nil {
		return err
	}

	tmp := name + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return xerrors.Errorf("write image %q: %w", ref, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return xerrors.Errorf("rename image %q: %w", ref, err)
	}
	return nil
}

// Open returns the image stored under ref, models.ErrNotFound when none is
func (s *Store) Open(ref string) ([]byte, error) {
	name, err := s.path(ref)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, name)
	if os.IsNotExist(err) {
		return nil, xerrors.Errorf("image %q: %w", ref, models.ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("read image %q: %w", ref, err)
	}
	return data, nil
}

// path maps a ref to a file inside the store. Refs carrying a directory
// component are rejected.
func (s *Store) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) {
		return "", xerrors.Errorf("image ref %q: %w", ref, models.ErrNotFound)
	}
	return filepath.Join(s.dir, ref), nil
}
