package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quizhub/apiserver/config"
)

// ErrObjectNotFound is returned by backends when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is an open object body with the metadata needed to serve it.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage keeps quiz cover images in an ObjectStorage backend.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg.Backend and makes sure its bucket
// exists. It returns nil, nil when no backend is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	var err error
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// CoverKey is the object key of a quiz cover image.
func CoverKey(quizID int64) string {
	return fmt.Sprintf("quizzes/%d/cover", quizID)
}

func (s *Storage) PutQuizCover(ctx context.Context, quizID int64, r io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	return s.backend.Put(ctx, CoverKey(quizID), r, size, contentType)
}

// GetQuizCover opens the cover of a quiz. The caller closes Object.Body.
func (s *Storage) GetQuizCover(ctx context.Context, quizID int64) (Object, error) {
	return s.backend.Get(ctx, CoverKey(quizID))
}

// DeleteQuizCover removes the cover of a quiz. A missing cover is not an error.
func (s *Storage) DeleteQuizCover(ctx context.Context, quizID int64) error {
	err := s.backend.Delete(ctx, CoverKey(quizID))
	if errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return err
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
