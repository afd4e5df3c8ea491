// Package core defines the abstractions for blob storage backends used by
// the snapshot archive layer.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem stores blobs under a local directory root.
	DriverFilesystem Driver = "fs"
	// DriverS3 targets an S3 or MinIO compatible endpoint.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory, for tests.
	DriverMemory Driver = "memory"
)

// PutOptions carries the optional attributes of a blob write.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // small flat key-value user metadata
}

// SignedURLOptions parameterizes PresignURL.
type SignedURLOptions struct {
	Method  string        // only GET is supported across drivers
	Expiry  time.Duration // default 15m
	Headers map[string]string
}

// Info is the stored metadata of one blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store provides a thin S3-like abstraction. Put is create-only: writing an
// existing key fails, which keeps archives append-only.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("blobstore: unsupported operation")
