package blobsvc

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

type MinioStore struct {
	client  *minio.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewMinioStore connects and creates the bucket if it does not exist.
func NewMinioStore(ctx context.Context, conf core.BlobConfig) (*MinioStore, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{Region: conf.Region}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}

	baseURL := conf.PublicBaseURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String() + "/" + conf.Bucket
	}
	return &MinioStore{client: client, bucket: conf.Bucket, prefix: conf.Prefix, baseURL: baseURL}, nil
}

func (s *MinioStore) Upload(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	key := objectKey(s.prefix, p)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, "putting minio object")
	}
	return publicURL(s.baseURL, key), nil
}
