// Package blob stores uploaded media on disk, addressed by content
// hash. refs are opaque to the rest of the system.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrBadRef = errors.New("invalid blob ref")

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Put writes the content to disk and returns its ref. The ref keeps
// the original extension so content types survive the round trip.
// Identical content yields the same ref, which is harmless: the file
// is simply rewritten in place.
func (s *Store) Put(filename string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	ref := hex.EncodeToString(h.Sum(nil))[:16] + strings.ToLower(filepath.Ext(filename))
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", err
	}
	return ref, nil
}

// Path resolves a ref to its on-disk path, rejecting anything that
// could escape the blob directory.
func (s *Store) Path(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, "/\\") || strings.Contains(ref, "..") {
		return "", ErrBadRef
	}
	return filepath.Join(s.dir, ref), nil
}

func (s *Store) Open(ref string) (*os.File, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *Store) Remove(ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
