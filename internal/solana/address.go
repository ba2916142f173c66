package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that s is a plausible Solana wallet address:
// base58, 32 bytes, and on the ed25519 curve. Program-derived addresses
// are off-curve and therefore rejected; wallets are keypair accounts.
func ValidateAddress(s string) error {
	if len(s) < 32 || len(s) > 44 {
		return fmt.Errorf("address length %d out of range", len(s))
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded address is %d bytes, want 32", len(raw))
	}

	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("address is not on the ed25519 curve")
	}

	return nil
}
