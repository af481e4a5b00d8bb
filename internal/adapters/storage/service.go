// Package storage archives uploaded lead import files in S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// ImportArchive stores the source files behind bulk lead imports so that an
// import can be traced back to the sheet it came from.
type ImportArchive interface {
	// ArchiveImport uploads the file under a per-pool folder and returns its key.
	ArchiveImport(ctx context.Context, folder, fileName string, reader io.Reader, size int64) (string, error)

	// DownloadFile streams an archived file. The caller closes the reader.
	DownloadFile(ctx context.Context, fileKey string) (io.ReadCloser, error)

	// EnsureBucketExists creates the import bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketLeadImports() string
	IsMinIOEnabled() bool
}
