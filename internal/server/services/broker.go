package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
)

// Broker is the slice of the blob-store access broker the services need.
// Satisfied by *blobstore.Client; faked in tests.
type Broker interface {
	Put(ctx context.Context, key string, body []byte, contentType string, displayName string) error
	Probe(ctx context.Context, key string) (*blobstore.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, responseFilename string, contentType string, ttl time.Duration) (string, error)
}
