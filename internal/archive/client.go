// Package archive ships completed run snapshots to S3-compatible object
// storage (AWS S3 or Cloudflare R2) for long-term retention, serialized with
// msgpack.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	appconfig "github.com/aristath/confluence/internal/config"
)

// ObjectStore is the minimal object storage surface the archive needs.
// Satisfied by Client; tests substitute a fake.
type ObjectStore interface {
	Upload(ctx context.Context, key string, payload []byte) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key       string
	SizeBytes int64
}

// Client wraps the S3 API for snapshot storage
type Client struct {
	s3       *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewClient creates an object storage client. A non-empty endpoint switches
// from AWS S3 to an S3-compatible service such as Cloudflare R2.
func NewClient(ctx context.Context, cfg *appconfig.ArchiveConfig, log zerolog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{
		s3:       s3Client,
		uploader: manager.NewUploader(s3Client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("component", "archive_client").Logger(),
	}, nil
}

// Upload stores one object
func (c *Client) Upload(ctx context.Context, key string, payload []byte) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/msgpack"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	c.log.Debug().Str("key", key).Int("size_bytes", len(payload)).Msg("Object uploaded")
	return nil
}

// List returns the objects under a prefix
func (c *Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, objectInfo(obj))
		}
	}

	return out, nil
}

// Delete removes one object
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func objectInfo(obj types.Object) ObjectInfo {
	info := ObjectInfo{}
	if obj.Key != nil {
		info.Key = *obj.Key
	}
	if obj.Size != nil {
		info.SizeBytes = *obj.Size
	}
	return info
}
