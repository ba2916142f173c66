package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeWalletID computes a deterministic wallet ID using SHA256 of
// the base58 address. The address is unique per tracked wallet, so the
// hash is too; re-adding a removed wallet yields the same ID.
// Returns the first 16 hex characters.
func ComputeWalletID(address string) string {
	hash := sha256.Sum256([]byte(address))
	return hex.EncodeToString(hash[:])[:16]
}
