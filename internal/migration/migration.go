package migration

import (
	"crypto/sha256"
	"encoding/hex"
)

// Migration represents a single database migration loaded from disk.
type Migration struct {
	Version  string // "0001" — zero-padded ordinal extracted from filename
	Name     string // "create_users" — extracted from filename
	UpSQL    string // forward segment of the migration file
	DownSQL  string // rollback segment (empty if the file has no marker)
	Checksum string // SHA-256 hex digest of UpSQL
	FilePath string // path to the migration file
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
