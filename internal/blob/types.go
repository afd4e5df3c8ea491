// Package blob is the import surface for archive blob storage. It re-exports
// the core abstractions so callers never import a concrete driver package;
// the driver is chosen at runtime through Open or the New* constructors.
package blob

import (
	"dockcore/internal/blob/core"
)

type (
	// Driver names a storage backend.
	Driver = core.Driver
	// PutOptions carries content type and user metadata for a write.
	PutOptions = core.PutOptions
	// SignedURLOptions parameterizes PresignURL.
	SignedURLOptions = core.SignedURLOptions
	// Info is the stored metadata of one blob.
	Info = core.Info
	// Store is the backend contract archives are written through.
	Store = core.Store
)

const (
	// DriverFilesystem stores blobs under a local directory root.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 stores blobs in an S3 or MinIO bucket.
	DriverS3 = core.DriverS3
	// DriverMemory keeps blobs in process memory, for tests.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported reports an operation the selected driver cannot perform.
var ErrUnsupported = core.ErrUnsupported
