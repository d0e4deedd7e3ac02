package uploader

import (
	"context"
	"fmt"

	cfg "derivefuzz/internal/config"
	"derivefuzz/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Uploader uploads artifacts to S3-compatible storage.
type S3Uploader struct {
	bucket string
	prefix string
	client *s3.Client
}

// NewS3 constructs an uploader from S3 configuration. A custom endpoint
// targets S3-compatible services such as MinIO.
func NewS3(ctx context.Context, c cfg.S3Config) (*S3Uploader, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = c.UsePathStyle
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})
	return &S3Uploader{bucket: c.Bucket, prefix: c.Prefix, client: client}, nil
}

// Enabled reports whether the uploader has a client.
func (u *S3Uploader) Enabled() bool {
	return u != nil && u.client != nil
}

// UploadFile uploads one artifact and returns its S3 URL.
func (u *S3Uploader) UploadFile(ctx context.Context, path, key string) (string, error) {
	if !u.Enabled() {
		return "", errors.New("s3 uploader is not initialized")
	}
	a, err := openArtifact(path)
	if err != nil {
		return "", err
	}
	defer util.CloseWithErr(a.file, "s3 upload file")

	objKey := objectKey(u.prefix, key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(objKey),
		Body:          a.file,
		ContentLength: aws.Int64(a.size),
		ContentType:   aws.String(a.contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", u.bucket, objKey)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, objKey), nil
}
