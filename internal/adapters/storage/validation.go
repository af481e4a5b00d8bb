package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// importContentTypes maps accepted import extensions to their MIME type.
var importContentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ContentTypeFor returns the MIME type for an import file name.
func ContentTypeFor(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	ct, ok := importContentTypes[ext]
	if !ok {
		return "", fmt.Errorf("file type %q is not allowed", ext)
	}
	return ct, nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize)
	}
	return nil
}

// GetMaxFileSize returns the configured maximum file size in bytes.
func (s *MinIOService) GetMaxFileSize() int64 {
	return s.maxFileSize
}
