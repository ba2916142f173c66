package domain

// TrackedWallet is a wallet address the tracker keeps a live subscription for.
type TrackedWallet struct {
	ID        string // opaque store-assigned identifier
	Address   string // base58 wallet address, unique
	Name      string // optional display name
	IsActive  bool   // whether a live subscription should exist
	CreatedAt int64  // Unix timestamp in milliseconds
	UpdatedAt int64  // Unix timestamp in milliseconds
}
