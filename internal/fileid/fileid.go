// Package fileid derives document record IDs for files on disk and for uploads.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	filePrefix   = "file:"
	uploadPrefix = "upload:"
)

// FileDocID returns a stable document ID for a file on disk. Relative paths are made
// absolute first, so the same file always yields the same ID regardless of how it
// was named on the command line or by the watcher.
func FileDocID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return filePrefix + hex.EncodeToString(hash[:16])
}

// UploadDocID returns a new random ID for an uploaded document. Uploads of the
// same file name are separate documents.
func UploadDocID() string {
	return uploadPrefix + uuid.NewString()
}

// IsFileDocID reports whether id was produced by FileDocID.
func IsFileDocID(id string) bool {
	return strings.HasPrefix(id, filePrefix)
}
