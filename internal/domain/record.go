package domain

// Direction classifies a swap record by the signer's SOL balance delta.
type Direction string

const (
	// DirectionBuy means the signer spent SOL (negative delta).
	DirectionBuy Direction = "buy"
	// DirectionSell means the signer received SOL (positive delta).
	DirectionSell Direction = "sell"
	// DirectionTransfer means the signer's SOL balance did not change.
	DirectionTransfer Direction = "transfer"
)

// ValidDirection reports whether s is a known direction value.
func ValidDirection(s string) bool {
	switch Direction(s) {
	case DirectionBuy, DirectionSell, DirectionTransfer:
		return true
	}
	return false
}

// SwapRecord is a normalized swap/transfer reconstructed from one transaction.
// Immutable once constructed; persisted at most once per Signature.
type SwapRecord struct {
	Signature     string    // transaction signature, unique key
	WalletID      string    // owning tracked wallet ID
	WalletAddress string    // signer address the record is attributed to
	Direction     Direction // buy, sell or transfer
	Venue         string    // best-effort venue label, "unknown" if unmatched
	TokenIn       string    // in-leg token symbol
	TokenOut      string    // out-leg token symbol
	TokenMint     string    // out-leg token mint, empty if no inner transfer found
	AmountIn      string    // in-leg amount as decimal string
	AmountOut     string    // out-leg amount in raw token units
	SolPriceUSD   float64   // SOL/USD reference price at classification time
	Description   string    // human-readable one-liner, observability only
	Slot          int64     // slot the transaction landed in
	ObservedAt    int64     // block time if present, else classification wall clock (Unix ms)
}

// TokenActivity aggregates swap records touching one token mint.
type TokenActivity struct {
	TokenMint  string // mint address the records share
	TokenOut   string // derived symbol of the out leg
	Trades     int    // total records touching the mint
	Buys       int    // records with direction buy
	Sells      int    // records with direction sell
	LastSeenAt int64  // most recent ObservedAt (Unix ms)
}
