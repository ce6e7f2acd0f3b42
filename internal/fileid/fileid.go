// Package fileid derives stable origin ids for files imported from the inbox.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const prefix = "file:"

// ForPath returns the origin id of path relative to root. The id depends only
// on the relative location, so an inbox that is moved keeps its ids.
func ForPath(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("fileid: %w", err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fileid: %s is not under %s", path, root)
	}
	hash := sha256.Sum256([]byte(filepath.ToSlash(rel)))
	return prefix + hex.EncodeToString(hash[:]), nil
}

// IsFileID reports whether id was produced by ForPath.
func IsFileID(id string) bool {
	return strings.HasPrefix(id, prefix) && len(id) == len(prefix)+sha256.Size*2
}
