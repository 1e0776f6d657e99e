package upstream

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the S3 API used by S3Transport.
type S3Client interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// AWSS3Client adapts the AWS SDK v2 S3 client to S3Client.
type AWSS3Client struct {
	client *s3.Client
}

// NewAWSS3Client wraps an SDK client.
func NewAWSS3Client(client *s3.Client) *AWSS3Client {
	return &AWSS3Client{client: client}
}

// GetObject returns the object body.
func (c *AWSS3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// S3Transport reads raw text from a bucket laid out like the FTP mirror:
// s3://<bucket>/<prefix>/<station>/<stem>.txt
type S3Transport struct {
	client S3Client
}

// NewS3Transport creates an S3Transport.
func NewS3Transport(client S3Client) *S3Transport {
	return &S3Transport{client: client}
}

// Get fetches the object named by an s3:// URL.
func (t *S3Transport) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, key, err := splitMirrorURL(rawURL)
	if err != nil {
		return nil, err
	}
	body, err := t.client.GetObject(ctx, u.Host, key)
	if err != nil {
		return nil, fmt.Errorf("s3 get s3://%s/%s: %w", u.Host, key, err)
	}
	return body, nil
}
