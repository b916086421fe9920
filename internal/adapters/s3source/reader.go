package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cost-engine-service/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectGetter is the part of *s3.Client the reader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Config struct {
	Region    string
	Bucket    string // default bucket when a source does not name one
	Endpoint  string // set for MinIO and other S3-compatible stores
	PathStyle bool
}

// Reader loads factor-set documents from an S3-compatible bucket.
type Reader struct {
	client        ObjectGetter
	defaultBucket string
}

// NewClient builds an S3 client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func NewReader(client ObjectGetter, defaultBucket string) *Reader {
	return &Reader{client: client, defaultBucket: defaultBucket}
}

// ReadFactorSet fetches desc.Key (or "<name>.json") from desc.Bucket or the default bucket.
func (r *Reader) ReadFactorSet(ctx context.Context, name string, desc domain.SourceDescriptor) ([]byte, error) {
	bucket := desc.Bucket
	if bucket == "" {
		bucket = r.defaultBucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: no bucket configured for source %q", domain.ErrSourceNotConfigured, name)
	}
	key := desc.Key
	if key == "" {
		key = name + ".json"
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%w: s3://%s/%s: %v", domain.ErrSourceNotConfigured, bucket, key, err)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return raw, nil
}
