package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination uploads the payload to an S3-compatible bucket.
type S3Destination struct {
	client      *s3.Client
	bucket      string
	key         string
	contentType string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string, format Format) (*S3Destination, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client:      s3.NewFromConfig(cfg, s3opts...),
		bucket:      bucket,
		key:         key,
		contentType: format.ContentType(),
	}, nil
}

// Write uploads data as the configured object key.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(d.contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (d *S3Destination) String() string { return "s3://" + d.bucket + "/" + d.key }
