package mirror

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// Mirror copies persisted history documents to object storage
type Mirror interface {
	Put(ctx context.Context, name string, data []byte) error
}

// ObjectPutter is the part of the S3 client the mirror uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures an S3-compatible mirror
type Options struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// S3Mirror implements Mirror on any S3-compatible store (AWS, R2, MinIO)
type S3Mirror struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Mirror builds an S3 client from the options. Static credentials are
// used when given, otherwise the default AWS credential chain.
func NewS3Mirror(ctx context.Context, opts Options) (*S3Mirror, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, pkgerrors.NewConfiguration("failed to load S3 config", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3MirrorWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3MirrorWithClient wraps an existing client
func NewS3MirrorWithClient(client ObjectPutter, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a document file name
func (m *S3Mirror) Key(name string) string {
	return path.Join(m.prefix, name)
}

// Put uploads one document
func (m *S3Mirror) Put(ctx context.Context, name string, data []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(m.Key(name)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("max-age=300"),
	})
	if err != nil {
		return pkgerrors.NewStorage(fmt.Sprintf("s3://%s/%s", m.bucket, m.Key(name)), "failed to upload history", err)
	}
	return nil
}
