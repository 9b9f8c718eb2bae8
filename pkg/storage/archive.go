// Package storage keeps an optional copy of relayed videos in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type VideoArchive struct {
	client *s3.Client
	bucket string
}

func NewVideoArchive(ctx context.Context, cfg S3Config) (*VideoArchive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &VideoArchive{client: client, bucket: cfg.Bucket}, nil
}

// Key lays objects out by day and request: videos/2006/01/02/<id>/<file>.
func Key(requestID, fileName string, at time.Time) string {
	return path.Join("videos", at.UTC().Format("2006/01/02"), requestID, path.Base(fileName))
}

func (a *VideoArchive) Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}

// Ping checks the bucket is reachable with the configured credentials.
func (a *VideoArchive) Ping(ctx context.Context) error {
	_, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", a.bucket, err)
	}
	return nil
}
