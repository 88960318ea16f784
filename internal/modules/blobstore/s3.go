package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/daybook-app/core/internal/config"
	"go.uber.org/zap"
)

// Client stores entry attachments in an S3-compatible bucket. Objects are
// keyed owners/<owner>/<entry>/<filename> so an owner's blobs can be listed
// and removed together.
type Client struct {
	s3     *s3.Client
	bucket string
	opts   appcfg.S3Options
	logger *zap.Logger
}

func New(ctx context.Context, opts appcfg.S3Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.PathStyleAccess
	})

	return &Client{
		s3:     client,
		bucket: opts.Bucket,
		opts:   opts,
		logger: logger.Named("BlobStore"),
	}, nil
}

// ObjectKey builds the canonical object key for an entry attachment.
func ObjectKey(ownerID, entryID, filename string) string {
	return fmt.Sprintf("owners/%s/%s/%s", ownerID, entryID, sanitizeFilename(filename))
}

// Upload stores a payload and returns the public URL of the object.
func (c *Client) Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	c.logger.Debug("uploaded attachment", zap.String("key", key), zap.Int("bytes", len(payload)))
	return c.publicURL(key), nil
}

// Delete removes an object previously uploaded by this store. Refs pointing
// outside the store's bucket are ignored.
func (c *Client) Delete(ctx context.Context, ref string) error {
	key, ok := c.keyFromRef(ref)
	if !ok {
		return nil
	}
	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (c *Client) publicURL(key string) string {
	if domain := strings.TrimRight(strings.TrimSpace(c.opts.CustomDomain), "/"); domain != "" {
		return domain + "/" + key
	}
	endpoint := strings.TrimRight(strings.TrimSpace(c.opts.Endpoint), "/")
	if endpoint == "" {
		region := strings.TrimSpace(c.opts.Region)
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, region, key)
	}
	if c.opts.PathStyleAccess {
		return fmt.Sprintf("%s/%s/%s", endpoint, c.bucket, key)
	}
	return fmt.Sprintf("%s/%s", endpoint, key)
}

func (c *Client) keyFromRef(ref string) (string, bool) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", false
	}

	bases := []string{}
	if domain := strings.TrimRight(strings.TrimSpace(c.opts.CustomDomain), "/"); domain != "" {
		bases = append(bases, domain+"/")
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(c.opts.Endpoint), "/"); endpoint != "" {
		bases = append(bases, endpoint+"/"+c.bucket+"/", endpoint+"/")
	}
	for _, base := range bases {
		if strings.HasPrefix(trimmed, base) {
			key := strings.TrimPrefix(trimmed, base)
			if strings.HasPrefix(key, "owners/") {
				return key, true
			}
		}
	}

	if idx := strings.Index(trimmed, "/owners/"); idx >= 0 {
		return trimmed[idx+1:], true
	}
	return "", false
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		name = "attachment"
	}
	return name
}
