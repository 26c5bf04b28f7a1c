// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/sanket/core"
)

var (
	// ErrEndpointRequired indicates no MinIO endpoint was configured.
	ErrEndpointRequired = errors.New("minio endpoint required")

	// ErrBucketRequired indicates no bucket was configured.
	ErrBucketRequired = errors.New("minio bucket required")
)

// MinioConfig configures a MinioArchive.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// objectClient is the subset of *minio.Client used by MinioArchive.
type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioArchive stores documents in an S3-compatible bucket.
type MinioArchive struct {
	client objectClient
	bucket string
	logger *slog.Logger
}

var _ Store = (*MinioArchive)(nil)

// Option configures a MinioArchive.
type Option func(*MinioArchive) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *MinioArchive) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

func withClient(c objectClient) Option {
	return func(a *MinioArchive) error {
		a.client = c
		return nil
	}
}

// NewMinioArchive connects to MinIO and creates the bucket if it does not exist.
func NewMinioArchive(ctx context.Context, config MinioConfig, opts ...Option) (*MinioArchive, error) {
	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if config.Bucket == "" {
		return nil, ErrBucketRequired
	}

	a := &MinioArchive{
		bucket: config.Bucket,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "archive", "bucket", config.Bucket)

	if a.client == nil {
		client, err := minio.New(config.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
			Secure: config.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}
		a.client = client
	}

	exists, err := a.client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", config.Bucket, err)
		}
		a.logger.Info("bucket created")
	}
	return a, nil
}

// Put uploads doc unless an object with the same name already exists.
func (a *MinioArchive) Put(ctx context.Context, doc *core.SourceDocument) (string, error) {
	name := ObjectName(doc)

	_, err := a.client.StatObject(ctx, a.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		a.logger.Debug("document already archived", "object", name)
		return name, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(doc.Body), int64(len(doc.Body)),
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"source-url": doc.URL,
				"fetched-at": doc.FetchedAt.UTC().Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	a.logger.Info("document archived", "object", name, "size", info.Size)
	return name, nil
}
