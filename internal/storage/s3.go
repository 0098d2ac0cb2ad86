package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
)

// S3Store keeps audio in an S3-compatible bucket.
type S3Store struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string // optional base URL for public bucket (e.g. http://localhost:9000/podcasts-audio)
}

// NewS3Store creates a new S3 storage client
func NewS3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey, publicURL string) (*S3Store, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	// custom endpoint for MinIO/LocalStack
	if endpoint != "" {
		configOpts = append(configOpts, awsconfig.WithBaseEndpoint(endpoint))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for MinIO; checksums only when required so
	// S3-compatible backends (e.g. Cloudflare R2) work correctly.
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	log.Info().
		Str("endpoint", endpoint).
		Str("bucket", bucket).
		Msg("S3 storage initialized")

	return &S3Store{
		s3Client:  s3Client,
		bucket:    bucket,
		publicURL: publicURL,
	}, nil
}

// PublicURL returns the public URL for an object key. Empty if publicURL was not configured.
func (c *S3Store) PublicURL(key string) string {
	if c.publicURL == "" {
		return ""
	}
	if c.publicURL[len(c.publicURL)-1] == '/' {
		return c.publicURL + key
	}
	return c.publicURL + "/" + key
}

// Write uploads data. Content-Length is always set; R2 requires it.
func (c *S3Store) Write(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().
		Str("bucket", c.bucket).
		Str("key", key).
		Msg("Audio uploaded to S3")

	return nil
}

// Open retrieves an object.
func (c *S3Store) Open(ctx context.Context, key string) (*Object, error) {
	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &Object{
		Body:        result.Body,
		Size:        aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
		ModTime:     aws.ToTime(result.LastModified),
	}, nil
}

// Info lists the bucket and sums object sizes.
func (c *S3Store) Info(ctx context.Context) (models.StorageInfo, error) {
	info := models.StorageInfo{Location: "s3://" + c.bucket}
	var total int64
	err := c.each(ctx, func(obj types.Object) error {
		info.TotalFiles++
		total += aws.ToInt64(obj.Size)
		return nil
	})
	info.TotalSizeMB = bytesToMB(total)
	return info, err
}

// Cleanup deletes objects last modified before now-maxAge.
func (c *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	err := c.each(ctx, func(obj types.Object) error {
		if !aws.ToTime(obj.LastModified).Before(cutoff) {
			return nil
		}
		if err := c.Delete(ctx, aws.ToString(obj.Key)); err != nil {
			log.Warn().Err(err).Str("key", aws.ToString(obj.Key)).Msg("Failed to delete old audio object")
			return nil
		}
		deleted++
		return nil
	})
	return deleted, err
}

// Delete deletes an object from S3
func (c *S3Store) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	log.Info().
		Str("bucket", c.bucket).
		Str("key", key).
		Msg("Audio deleted from S3")

	return nil
}

// GeneratePresignedURL generates a presigned URL for downloading an object
func (c *S3Store) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return req.URL, nil
}

// Ping checks that the bucket is reachable.
func (c *S3Store) Ping(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

// Close is a no-op.
func (c *S3Store) Close() error { return nil }

func (c *S3Store) each(ctx context.Context, fn func(types.Object) error) error {
	p := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}
