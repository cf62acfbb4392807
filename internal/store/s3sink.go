package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 client used for published copies.
type S3Options struct {
	Region   string
	Endpoint string
}

// s3Client defines the minimal subset of the S3 client used by the sink.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the rendered collection as a single object.
type S3Sink struct {
	bucket string
	key    string
	client s3Client
}

// NewS3Sink builds an S3Sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucket, key string, opts S3Options) (*S3Sink, error) {
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3SinkWithClient(bucket, key, client), nil
}

func newS3SinkWithClient(bucket, key string, client s3Client) *S3Sink {
	return &S3Sink{bucket: bucket, key: key, client: client}
}

func (s *S3Sink) Location() string { return "s3://" + s.bucket + "/" + s.key }

// Write uploads data, replacing the object.
func (s *S3Sink) Write(ctx context.Context, data []byte) error {
	contentType := "application/json"
	if FormatFor(s.key) == FormatYAML {
		contentType = "application/yaml"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", s.Location(), err)
	}
	return nil
}
