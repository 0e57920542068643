package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SchemeS3 — схема S3-хранилища.
const SchemeS3 = "s3"

// S3Config — настройки S3-протокола.
type S3Config struct {
	// Endpoint — URL S3-совместимого сервиса. Пусто — AWS по умолчанию.
	Endpoint string

	// Region — регион бакетов.
	Region string

	// AccessKey, SecretKey — статические ключи. Пусто — цепочка по умолчанию.
	AccessKey string
	SecretKey string
}

// S3Protocol — протокол s3://bucket/key.
type S3Protocol struct {
	client *s3.Client
}

// NewS3Protocol создаёт S3-протокол.
func NewS3Protocol(ctx context.Context, cfg S3Config) (*S3Protocol, error) {
	opts := make([]func(*config.LoadOptions) error, 0, 2)

	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.StaticCredentialsProvider{Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			}},
		))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
				},
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		o.UsePathStyle = true
	})

	return &S3Protocol{client: client}, nil
}

// Name возвращает "s3".
func (p *S3Protocol) Name() string {
	return SchemeS3
}

// ParseS3Location разбирает s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	if Scheme(location) != SchemeS3 {
		return "", "", fmt.Errorf("%w: %s is not an s3 location", ErrInvalidLocation, location)
	}
	rest := strings.TrimPrefix(location[len(SchemeS3):], "://")
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %s has no bucket", ErrInvalidLocation, location)
	}
	return bucket, key, nil
}

// Exists проверяет наличие объекта.
func (p *S3Protocol) Exists(ctx context.Context, location string) (bool, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return false, err
	}

	_, err = p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", location, err)
}

// Open открывает объект на чтение.
func (p *S3Protocol) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	return out.Body, nil
}

// Create возвращает writer, который выгружает объект при Close.
func (p *S3Protocol) Create(ctx context.Context, location string) (io.WriteCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, client: p.client, bucket: bucket, key: key}, nil
}

// MkdirAll ничего не делает: в S3 нет каталогов.
func (p *S3Protocol) MkdirAll(_ context.Context, location string) error {
	_, _, err := ParseS3Location(location)
	return err
}

// Symlink не поддерживается.
func (p *S3Protocol) Symlink(_ context.Context, _, link string) error {
	return fmt.Errorf("%w: %s", ErrSymlinkUnsupported, link)
}

// Remove удаляет объект.
func (p *S3Protocol) Remove(ctx context.Context, location string) error {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return err
	}

	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("delete %s: %w", location, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

// s3Writer буферизует данные и выгружает их одним PutObject.
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed s3 object")
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
