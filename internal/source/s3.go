package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const s3Scheme = "s3://"

// S3Options configures access to s3:// sources.
type S3Options struct {
	Region         string
	Endpoint       string // custom endpoint for S3-compatible stores (MinIO, localstack)
	ForcePathStyle bool

	// HTTPClient and Credentials override the SDK defaults; used by tests.
	HTTPClient  *http.Client
	Credentials *credentials.Credentials
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(location string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(strings.ToLower(location), s3Scheme) {
		return "", "", false
	}
	rest := location[len(s3Scheme):]
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// IsS3URL reports whether location uses the s3:// scheme, well-formed or not.
func IsS3URL(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), s3Scheme)
}

func newS3Client(opts S3Options) (*s3.S3, error) {
	cfg := &aws.Config{
		S3ForcePathStyle: aws.Bool(opts.ForcePathStyle),
	}
	if opts.Region != "" {
		cfg.Region = aws.String(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Credentials != nil {
		cfg.Credentials = opts.Credentials
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

// openS3 streams an object body. The object is never buffered in full.
func openS3(ctx context.Context, bucket, key string, opts S3Options) (io.ReadCloser, int64, error) {
	client, err := newS3Client(opts)
	if err != nil {
		return nil, 0, err
	}

	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, err
	}
	if out.Body == nil {
		return nil, 0, errors.New("s3 object has no body")
	}
	return out.Body, aws.Int64Value(out.ContentLength), nil
}
