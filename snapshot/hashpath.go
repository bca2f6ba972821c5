package snapshot

import "path/filepath"

// blobPath generates the blob location for a content hash, spread over
// a multi-level directory tree so a session with many generations does
// not pile every blob into one directory.
//
// Example: blobPath("abc123def456...") → "blobs/ab/c1/23/abc123def456....lz4"
func blobPath(hash string) string {
	if len(hash) < 6 {
		return filepath.Join("blobs", hash+".lz4")
	}
	return filepath.Join("blobs", hash[0:2], hash[2:4], hash[4:6], hash+".lz4")
}
