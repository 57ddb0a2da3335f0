package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// StorageService keeps uploaded objects on local disk, one directory per
// bucket, and hands back their public URL.
type StorageService interface {
	Upload(bucket, name string, r io.Reader) (string, error)
	Open(bucket, name string) (*os.File, error)
	PublicURL(bucket, name string) string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type storageService struct {
	dir       string
	publicURL string
	buckets   map[string]bool
}

func NewStorageService(dir, publicURL string, buckets ...string) StorageService {
	allowed := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		allowed[b] = true
	}
	return &storageService{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		buckets:   allowed,
	}
}

// SanitizeName reduces an object name to a single safe path element.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	return name
}

func (s *storageService) path(bucket, name string) (string, error) {
	if !s.buckets[bucket] {
		return "", fmt.Errorf("%w: unknown bucket %q", ErrNotFound, bucket)
	}
	clean := SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("%w: empty object name", ErrInvalidInput)
	}
	return filepath.Join(s.dir, bucket, clean), nil
}

func (s *storageService) Upload(bucket, name string, r io.Reader) (string, error) {
	p, err := s.path(bucket, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", err
	}
	return s.PublicURL(bucket, filepath.Base(p)), nil
}

func (s *storageService) Open(bucket, name string) (*os.File, error) {
	p, err := s.path(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *storageService) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.publicURL, bucket, SanitizeName(name))
}
