// Package blob re-exports the artifact store abstractions and picks a
// backend from the environment.
package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"detgeom/internal/blob/core"
	fsstore "detgeom/internal/infra/blob/fs"
	memorystore "detgeom/internal/infra/blob/memory"
	s3store "detgeom/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for artifact backends.
	Store = core.Store
	// S3Config holds S3 bucket coordinates and credentials.
	S3Config = s3store.Config
)

const (
	// DriverFilesystem is the local directory driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrExists indicates a Put against an occupied key.
var ErrExists = core.ErrExists

// ErrNotFound indicates a missing key.
var ErrNotFound = core.ErrNotFound

// NewFilesystem returns a directory-backed store rooted at dir.
func NewFilesystem(dir string) (Store, error) { return fsstore.New(dir) }

// NewMemory returns an in-memory store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 returns a bucket-backed store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// Open selects a Store implementation using environment variables.
//
//	DETGEOM_BLOB_DRIVER: fs|s3|memory (default fs)
//	DETGEOM_BLOB_FS_ROOT: directory root when driver=fs
//	DETGEOM_BLOB_S3_BUCKET: bucket name, required when driver=s3
//	DETGEOM_BLOB_S3_REGION: region (default us-east-1)
//	DETGEOM_BLOB_S3_ENDPOINT: custom endpoint, e.g. MinIO
//	DETGEOM_BLOB_S3_PATH_STYLE: true|false (default false)
//
// S3 credentials come from the standard AWS environment or the
// default credentials chain.
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("DETGEOM_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("DETGEOM_BLOB_FS_ROOT"))
	case DriverS3:
		bucket := os.Getenv("DETGEOM_BLOB_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("DETGEOM_BLOB_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:    bucket,
			Region:    os.Getenv("DETGEOM_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("DETGEOM_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("DETGEOM_BLOB_S3_PATH_STYLE"), "true"),
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
