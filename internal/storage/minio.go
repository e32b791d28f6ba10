package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"golang.org/x/sync/errgroup"
)

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible) backend.
type MinioStore struct {
	client *minio.Client
}

// MinioOptions configures the MinIO client and the buckets it bootstraps.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Buckets are created at startup if missing.
	Buckets []string
	// TmpBucket, when set, gets an object-expiry lifecycle rule of
	// TmpRetentionDays so staged uploads garbage-collect server-side.
	TmpBucket        string
	TmpRetentionDays int
}

// NewMinioStore creates a MinIO client, ensures all configured buckets exist,
// and installs the staging-bucket expiry rule.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, bucket := range opts.Buckets {
		bucket := bucket
		g.Go(func() error {
			return ensureBucket(gctx, client, bucket)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.TmpBucket != "" && opts.TmpRetentionDays > 0 {
		if err := setExpiry(ctx, client, opts.TmpBucket, opts.TmpRetentionDays); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: client}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}
	return nil
}

func setExpiry(ctx context.Context, client *minio.Client, bucket string, days int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:         "expire-staged-uploads",
			Status:     "Enabled",
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(days)},
		},
	}
	if err := client.SetBucketLifecycle(ctx, bucket, cfg); err != nil {
		return fmt.Errorf("set expiry on bucket %q: %w", bucket, err)
	}
	return nil
}

// Put streams reader to MinIO under bucket/key.
func (s *MinioStore) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get opens a read stream for bucket/key. MinIO reports a missing key lazily
// on the first read, so the object is stat-ed up front to translate NoSuchKey
// into ErrNotExist before the caller starts streaming.
func (s *MinioStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, ObjectInfo{}, ErrNotExist
		}
		return nil, ObjectInfo{}, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}

	return obj, ObjectInfo{Size: stat.Size, ContentType: stat.ContentType}, nil
}

// Remove deletes bucket/key. A missing key is treated as success.
func (s *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && resp.Code == "NoSuchKey"
}
