package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the minimal subset of s3 client methods we use; allows test fakes.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newS3Client constructs an s3 client; overridden in tests.
// Env support: AWS_REGION, AWS_ENDPOINT_URL_S3, AWS_S3_FORCE_PATH_STYLE.
var newS3Client = func(ctx context.Context) (s3API, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("AWS_ENDPOINT_URL_S3"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		if strings.EqualFold(os.Getenv("AWS_S3_FORCE_PATH_STYLE"), "true") {
			o.UsePathStyle = true
		}
	}), nil
}

// S3Client serves file:// and s3:// URIs. The s3 client is created lazily so
// workers that only read local files never touch AWS configuration.
type S3Client struct {
	client s3API
}

// NewS3 returns a store; the underlying s3 client is built on first s3:// access.
func NewS3() *S3Client {
	return &S3Client{}
}

func (s *S3Client) s3(ctx context.Context) (s3API, error) {
	if s.client != nil {
		return s.client, nil
	}
	cl, err := newS3Client(ctx)
	if err != nil {
		return nil, err
	}
	s.client = cl
	return cl, nil
}

func parseS3(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("invalid s3 uri")
	}
	return
}

func (s *S3Client) Get(ctx context.Context, uri string) (io.ReadCloser, int64, error) {
	if strings.HasPrefix(uri, "file://") {
		f, err := os.Open(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return nil, 0, err
		}
		var size int64
		if info, _ := f.Stat(); info != nil {
			size = info.Size()
		}
		return f, size, nil
	}
	b, k, err := parseS3(uri)
	if err != nil {
		return nil, 0, err
	}
	cl, err := s.s3(ctx)
	if err != nil {
		return nil, 0, err
	}
	out, err := cl.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b), Key: aws.String(k)})
	if err != nil {
		return nil, 0, err
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func (s *S3Client) Put(ctx context.Context, uri string, body io.Reader) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		p := strings.TrimPrefix(uri, "file://")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		f, err := os.Create(p)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			return "", err
		}
		return uri, f.Close()
	}
	b, k, err := parseS3(uri)
	if err != nil {
		return "", err
	}
	cl, err := s.s3(ctx)
	if err != nil {
		return "", err
	}
	if _, err := cl.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(b), Key: aws.String(k), Body: body}); err != nil {
		return "", err
	}
	return uri, nil
}
