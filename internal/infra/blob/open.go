// Package blob selects a concrete blob store backend from the environment.
package blob

import (
	"context"
	"fmt"
	"os"

	"hemocore/internal/infra/blob/core"
	"hemocore/internal/infra/blob/fs"
	"hemocore/internal/infra/blob/memory"
	"hemocore/internal/infra/blob/s3"
)

// OpenFromEnv constructs a blob store using environment variables.
// Defaults to the filesystem driver when unset.
//
//	HEMOCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	HEMOCORE_BLOB_FS_ROOT: root directory for the fs driver (default ./blobdata)
//	HEMOCORE_BLOB_S3_*: s3 driver configuration, see the s3 package
func OpenFromEnv(ctx context.Context) (core.Store, error) {
	driver := os.Getenv("HEMOCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(core.DriverFilesystem)
	}
	switch core.Driver(driver) {
	case core.DriverFilesystem:
		root := os.Getenv("HEMOCORE_BLOB_FS_ROOT")
		if root == "" {
			root = "blobdata"
		}
		return fs.New(root)
	case core.DriverS3:
		return s3.OpenFromEnv(ctx)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
