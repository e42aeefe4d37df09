package verifier

import (
	"crypto/sha256"
	"encoding/hex"
)

// ArtifactDigest computes the canonical digest of an artifact: SHA-256,
// lowercase hex.
func ArtifactDigest(artifact []byte) string {
	sum := sha256.Sum256(artifact)
	return hex.EncodeToString(sum[:])
}

// DigestMatches reports whether the uploaded artifact hashes to exactly the
// digest claimed in the signed payload. The claimed digest participates in
// the string comparison as sent, so anything but lowercase hex fails.
func DigestMatches(artifact []byte, claimed string) bool {
	return ArtifactDigest(artifact) == claimed
}
