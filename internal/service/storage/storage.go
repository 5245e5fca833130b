package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
)

const publicHost = "https://storage.googleapis.com"

// Google Cloud Storage bucket with publicly readable objects
// Bucket access is managed outside the service
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS uses application default credentials unless opts say otherwise
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("bucket name must not be empty")
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't create storage client. Err: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

// Upload object and return its public url
// Failed read aborts upload: nothing is written to the bucket
func (s *GCS) Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		return "", fmt.Errorf("%w: can't upload object: %w", apperrors.ErrDependencyUnavailable, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: can't finish object upload: %w", apperrors.ErrDependencyUnavailable, err)
	}

	return PublicURL(s.bucket, name), nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

// ObjectName builds unique object name keeping only base name of user provided file name
func ObjectName(now time.Time, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString() + "-" + base
}

func PublicURL(bucket string, name string) string {
	return publicHost + "/" + bucket + "/" + url.PathEscape(name)
}
