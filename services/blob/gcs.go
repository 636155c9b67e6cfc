package blobsvc

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewGCSStore uses application default credentials.
func NewGCSStore(ctx context.Context, conf core.BlobConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating gcs client")
	}
	baseURL := conf.PublicBaseURL
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + conf.Bucket
	}
	return &GCSStore{client: client, bucket: conf.Bucket, prefix: conf.Prefix, baseURL: baseURL}, nil
}

func (s *GCSStore) Upload(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	key := objectKey(s.prefix, p)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing gcs object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing gcs object")
	}
	return publicURL(s.baseURL, key), nil
}
