package webcache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	objectPrefix = "fleet-bracket/webcache"

	// DefaultS3Timeout bounds every S3 call the cache makes.
	DefaultS3Timeout = 3 * time.Second
)

// S3Cache is an httpcache.Cache stored in an S3 bucket, so cached catalogs
// survive restarts and are shared between server instances.
type S3Cache struct {
	Config aws.Config

	// Client is created by Init from the default AWS config unless the
	// caller sets one first.
	Client *s3.Client

	Timeout time.Duration

	bucket string
	gzip   bool
	logger *zap.Logger
	ctx    context.Context
}

func NewS3Cache(ctx context.Context, bucket string, gzip bool, logger *zap.Logger) *S3Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Cache{
		ctx:     ctx,
		Timeout: DefaultS3Timeout,
		bucket:  bucket,
		gzip:    gzip,
		logger:  logger.With(zap.String("bucket", bucket)),
	}
}

// Init loads AWS credentials from the environment and shared config files
// and checks that the bucket is readable.
func (c *S3Cache) Init() error {
	if c.Client == nil {
		cfg, err := config.LoadDefaultConfig(c.ctx)
		if err != nil {
			return fmt.Errorf("s3cache: load AWS config: %w", err)
		}
		c.Config = cfg
		c.Client = s3.NewFromConfig(cfg)
	}

	ctx, cancel := c.opContext()
	defer cancel()
	if _, err := c.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	}); err != nil {
		return fmt.Errorf("s3cache: head bucket %s: %w", c.bucket, err)
	}
	if _, err := c.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		MaxKeys: aws.Int32(1),
	}); err != nil {
		return fmt.Errorf("s3cache: list objects in %s: %w", c.bucket, err)
	}
	return nil
}

func (c *S3Cache) Get(key string) ([]byte, bool) {
	objKey := c.objectKey(key)
	ctx, cancel := c.opContext()
	defer cancel()
	resp, err := c.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		if !isNoSuchKey(err) {
			c.logger.Warn("s3cache get failed", zap.String("key", objKey), zap.Error(err))
		}
		return nil, false
	}
	defer resp.Body.Close()

	var rdr io.Reader = resp.Body
	if c.gzip {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn("s3cache entry not gzip", zap.String("key", objKey), zap.Error(err))
			return nil, false
		}
		defer zr.Close()
		rdr = zr
	}
	data, err := io.ReadAll(rdr)
	if err != nil {
		c.logger.Warn("s3cache read failed", zap.String("key", objKey), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (c *S3Cache) Set(key string, data []byte) {
	objKey := c.objectKey(key)
	body, err := c.encode(data)
	if err != nil {
		c.logger.Warn("s3cache encode failed", zap.String("key", objKey), zap.Error(err))
		return
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objKey),
		Body:   bytes.NewReader(body),
	}
	if c.gzip {
		input.ContentEncoding = aws.String("gzip")
	}
	ctx, cancel := c.opContext()
	defer cancel()
	if _, err := c.Client.PutObject(ctx, input); err != nil {
		c.logger.Warn("s3cache put failed", zap.String("key", objKey), zap.Error(err))
	}
}

func (c *S3Cache) Delete(key string) {
	objKey := c.objectKey(key)
	ctx, cancel := c.opContext()
	defer cancel()
	if _, err := c.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objKey),
	}); err != nil {
		c.logger.Warn("s3cache delete failed", zap.String("key", objKey), zap.Error(err))
	}
}

func (c *S3Cache) opContext() (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultS3Timeout
	}
	return context.WithTimeout(c.ctx, timeout)
}

func (c *S3Cache) encode(data []byte) ([]byte, error) {
	if !c.gzip {
		return data, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *S3Cache) objectKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	objKey := objectPrefix + "/" + hex.EncodeToString(sum[:])
	if c.gzip {
		objKey += ".gz"
	}
	return objKey
}

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}
