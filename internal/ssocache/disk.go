package ssocache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	cacheDirPerm  = 0o700
	cacheFilePerm = 0o600
)

// DefaultDiskDir returns ~/.aws/sso/cache, the directory the AWS tooling shares
func DefaultDiskDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, ".aws", "sso", "cache"), nil
}

// DiskStore keeps one <id>.json file per entry in a directory
type DiskStore struct {
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. The directory is created on first write.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the cache directory
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", errors.Errorf("invalid cache id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *DiskStore) Get(id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 - id is validated above
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put writes the entry atomically: a temp file in the same directory is
// renamed over the target, so readers never see a partial file.
func (s *DiskStore) Put(id string, data []byte, _ time.Duration) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, cacheDirPerm); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(cacheFilePerm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to set cache file permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write cache file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync cache file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close cache file")
	}

	return errors.Wrap(os.Rename(tmpName, path), "failed to replace cache file")
}

func (s *DiskStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
