// Package blobstore is the access broker for the S3-compatible object
// store. It owns a single long-lived client pair (API + presign) built once
// at process start and injected into every operation; nothing in the request
// path constructs storage clients.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// metadataNameKey stores the original display name on the object itself,
// so it never has to be re-derived by splitting the storage key.
const metadataNameKey = "filename"

// Seams for tests.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config carries the settings needed to reach the object store.
type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

// ObjectInfo is what Probe reports about a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
	DisplayName string
}

// Client is the long-lived broker handle.
type Client struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New builds the broker once from configuration. Call it at process start
// and inject the result into every operation that needs storage.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	api := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &Client{
		api:     api,
		presign: newS3PresignClient(api),
		bucket:  cfg.Bucket,
	}, nil
}

// Put stores body under key with the given content type and records the
// display name as object metadata.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string, displayName string) error {
	_, err := putObject(c.api, ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
		Metadata:    map[string]string{metadataNameKey: displayName},
	})
	if err != nil {
		return fmt.Errorf("storage put: %w", err)
	}
	return nil
}

// Probe asks the store for an object's metadata. A missing object maps to
// common.ErrorNotFound; transport failures stay distinguishable from it.
func (c *Client) Probe(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := headObject(c.api, ctx, &s3.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("storage head: %w", err)
	}

	info := &ObjectInfo{
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		DisplayName: out.Metadata[metadataNameKey],
	}
	return info, nil
}

// Delete revokes the object under key. S3 DELETE is idempotent, so existence
// is probed first to surface common.ErrorNotFound for keys that were never
// stored or were already revoked.
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.Probe(ctx, key); err != nil {
		return err
	}

	_, err := deleteObject(c.api, ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("storage delete: %w", err)
	}
	return nil
}

// PresignPut issues a one-shot signed PUT URL for key, valid for ttl.
func (c *Client) PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	req, err := presignPutObject(c.presign, ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// PresignGet issues a signed GET URL for key, valid for ttl. The response
// is forced into an attachment download under responseFilename, and the
// object's actual content type (when known) is passed through rather than
// guessed.
func (c *Client) PresignGet(ctx context.Context, key string, responseFilename string, contentType string, ttl time.Duration) (string, error) {
	in := &s3.GetObjectInput{
		Bucket:                     &c.bucket,
		Key:                        &key,
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", responseFilename)),
	}
	if contentType != "" {
		in.ResponseContentType = &contentType
	}

	req, err := presignGetObject(c.presign, ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
