package minio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zlnvch/heartfolio/objects"
)

type MinioImageStore struct {
	client *minio.Client
	bucket string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewMinioImageStore connects and creates the bucket if it does not exist.
func NewMinioImageStore(ctx context.Context, opts Options) (*MinioImageStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Created bucket %s", opts.Bucket)
	}

	log.Printf("MinIO client connected to %s", opts.Endpoint)
	return &MinioImageStore{client: client, bucket: opts.Bucket}, nil
}

// PutImage stores the upload under a fresh UUIDv7 name and returns the
// object name that records keep in their uri/content field.
func (s *MinioImageStore) PutImage(ctx context.Context, userId string, folder string, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if !objects.ValidFolder(folder) {
		return "", objects.ErrInvalidFolder
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", objects.ErrNotAnImage
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	objectName := objects.ObjectName(userId, folder, id.String(), filename)

	_, err = s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return objectName, nil
}

func (s *MinioImageStore) ImageURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

func (s *MinioImageStore) DeleteImage(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// DeleteUserImages removes every object under the user's prefix.
func (s *MinioImageStore) DeleteUserImages(ctx context.Context, userId string) (int, error) {
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    objects.UserPrefix(userId),
		Recursive: true,
	})

	deleted := 0
	for object := range objectCh {
		if object.Err != nil {
			return deleted, object.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", object.Key, err)
		}
		deleted++
	}
	return deleted, nil
}

var _ objects.ImageStore = (*MinioImageStore)(nil)
