// Package privacy hashes viewer identifiers before anything reaches durable
// storage. Raw IP addresses and user-agent strings must never be persisted;
// the keyed hash keeps per-viewer uniqueness useful without being reversible.
package privacy

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const digestSize = 16

// Hasher produces stable one-way digests keyed by a deployment-local salt.
// Two deployments with different salts produce unrelated digests for the same
// address, so leaked rows cannot be joined across installations.
type Hasher struct {
	salt []byte
}

// NewHasher creates a Hasher from the configured salt. An empty salt is
// rejected by config validation before this is reached.
func NewHasher(salt string) *Hasher {
	return &Hasher{salt: []byte(salt)}
}

// HashIP returns the hex digest of a network address, or "" for empty input.
func (h *Hasher) HashIP(ip string) string {
	return h.digest(strings.TrimSpace(ip))
}

// HashUserAgent returns the hex digest of a user-agent string, or "" for
// empty input.
func (h *Hasher) HashUserAgent(ua string) string {
	return h.digest(strings.TrimSpace(ua))
}

func (h *Hasher) digest(value string) string {
	if value == "" {
		return ""
	}
	mac, err := blake2b.New(digestSize, h.salt)
	if err != nil {
		// Only reachable with a key > 64 bytes; config caps the salt length.
		return ""
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// MaxSaltLen is the largest salt blake2b accepts as a key.
const MaxSaltLen = 64
