package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/stitchlab/atelier/pkg/config"
)

// Object is a stored file plus the metadata the attachment records need.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// ObjectStore abstracts the two storage areas (design templates, order
// attachments). Put is upsert semantics: repeating a copy is safe.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) (*Object, error)
	Put(ctx context.Context, bucket string, obj *Object) error
}

// S3Store talks to an S3-compatible service.
type S3Store struct {
	client *s3.S3
	log    *zap.SugaredLogger
}

func NewS3Store(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*S3Store, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Storage.Region),
	}
	if cfg.Storage.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Storage.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.Storage.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.Storage.AccessKey, cfg.Storage.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage session: %w", err)
	}
	return &S3Store{client: s3.New(sess), log: log}, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	obj := &Object{Key: key, Data: data}
	if out.ContentType != nil {
		obj.ContentType = *out.ContentType
	}
	return obj, nil
}

func (s *S3Store) Put(ctx context.Context, bucket string, obj *Object) error {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, obj.Key, err)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(
		NewS3Store,
		func(s *S3Store) ObjectStore { return s },
	),
)
