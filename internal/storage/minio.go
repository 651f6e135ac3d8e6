package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSigner implements Signer against a MinIO (or any S3-compatible) backend.
// The bucket stays private: objects are reachable only through the presigned
// URLs issued here, never by a public bucket policy.
type MinioSigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewMinioSigner creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioSigner issuing URLs valid for ttl.
func NewMinioSigner(endpoint, accessKey, secretKey, bucket string, useSSL bool, ttl time.Duration) (*MinioSigner, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	return &MinioSigner{client: client, bucket: bucket, ttl: ttl}, nil
}

// SignedGetURL issues a presigned download URL for key.
func (s *MinioSigner) SignedGetURL(ctx context.Context, key string) (Grant, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, nil)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: presign get %q: %v", ErrUnavailable, key, err)
	}
	return Grant{URL: u.String(), ExpiresAt: time.Now().Add(s.ttl)}, nil
}

// SignedPutURL issues a presigned upload URL for key.
func (s *MinioSigner) SignedPutURL(ctx context.Context, key string) (Grant, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: presign put %q: %v", ErrUnavailable, key, err)
	}
	return Grant{URL: u.String(), ExpiresAt: time.Now().Add(s.ttl)}, nil
}
