package classify

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/solana"
)

// lamportsPerSol converts lamports to whole SOL units.
const lamportsPerSol = 1e9

// venueRule maps a log keyword to a venue label. Rules are evaluated
// in order and the first keyword match wins. When Composed is also
// present in the logs, ComposedVenue takes precedence over Venue.
type venueRule struct {
	Keyword       string
	Venue         string
	Composed      string
	ComposedVenue string
}

var venueRules = []venueRule{
	{Keyword: "pumpfun", Venue: "pumpfun", Composed: "pumpswap", ComposedVenue: "pumpfun_amm"},
	{Keyword: "pump.fun", Venue: "pumpfun", Composed: "pumpswap", ComposedVenue: "pumpfun_amm"},
	{Keyword: "raydium", Venue: "raydium"},
	{Keyword: "jupiter", Venue: "jupiter"},
	{Keyword: "orca", Venue: "orca"},
	{Keyword: "meteora", Venue: "meteora"},
}

// VenueUnknown is the fallback label when no rule matches.
const VenueUnknown = "unknown"

// DetectVenue matches lower-cased log text against the ordered venue
// rule table.
func DetectVenue(logs []string) string {
	text := strings.ToLower(strings.Join(logs, " "))

	for _, rule := range venueRules {
		if !strings.Contains(text, rule.Keyword) {
			continue
		}
		if rule.Composed != "" && strings.Contains(text, rule.Composed) {
			return rule.ComposedVenue
		}
		return rule.Venue
	}

	return VenueUnknown
}

// Classify turns a fetched transaction into a swap record attributed
// to walletAddress, or nil when the transaction cannot be parsed.
// solPrice is a best-effort USD annotation, zero when unavailable.
func Classify(tx *solana.Transaction, walletAddress string, solPrice float64) *domain.SwapRecord {
	return classifyAt(tx, walletAddress, solPrice, time.Now())
}

func classifyAt(tx *solana.Transaction, walletAddress string, solPrice float64, now time.Time) *domain.SwapRecord {
	if tx == nil || tx.Meta == nil || tx.Message == nil {
		return nil
	}

	signerIdx, signer := tx.Message.Signer()
	if signer == "" {
		signer = walletAddress
	}

	// SOL delta of the signer in whole units. Negative means the
	// signer spent SOL.
	var solChange float64
	if signerIdx >= 0 && signerIdx < len(tx.Meta.PreBalances) && signerIdx < len(tx.Meta.PostBalances) {
		solChange = (float64(tx.Meta.PostBalances[signerIdx]) - float64(tx.Meta.PreBalances[signerIdx])) / lamportsPerSol
	}

	direction := domain.DirectionTransfer
	switch {
	case solChange < 0:
		direction = domain.DirectionBuy
	case solChange > 0:
		direction = domain.DirectionSell
	}

	// Multi-hop swaps emit several inner transfers; the last one in
	// traversal order is taken as the settlement leg.
	last := lastTokenTransfer(tx.Meta.InnerInstructions)

	tokenIn := "SOL"
	tokenOut := "SOL"
	amountIn := strconv.FormatFloat(math.Abs(solChange), 'f', -1, 64)
	amountOut := "0"
	tokenMint := ""

	if last != nil {
		if last.Info.TokenAmount != nil && last.Info.TokenAmount.Amount != "" {
			amountOut = last.Info.TokenAmount.Amount
		} else if last.Info.Amount != "" {
			amountOut = last.Info.Amount
		}
		if last.Info.Mint != "" {
			tokenMint = last.Info.Mint
			tokenOut = shortMint(last.Info.Mint)
		}
	}

	observedAt := now.UnixMilli()
	if tx.BlockTime > 0 {
		observedAt = tx.BlockTime * 1000
	}

	return &domain.SwapRecord{
		Signature:     tx.Signature,
		WalletAddress: signer,
		Direction:     direction,
		Venue:         DetectVenue(tx.Meta.LogMessages),
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		TokenMint:     tokenMint,
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		SolPriceUSD:   solPrice,
		Description:   fmt.Sprintf("%s %s %s for %s %s", strings.ToUpper(string(direction)), amountOut, tokenOut, amountIn, tokenIn),
		Slot:          tx.Slot,
		ObservedAt:    observedAt,
	}
}

// lastTokenTransfer returns the final transfer or transferChecked
// instruction across all inner instruction sets, or nil.
func lastTokenTransfer(sets []solana.InnerInstructionSet) *solana.InstructionDetail {
	var last *solana.InstructionDetail
	for _, set := range sets {
		for _, inst := range set.Instructions {
			if inst.Parsed == nil {
				continue
			}
			if inst.Parsed.Type == "transfer" || inst.Parsed.Type == "transferChecked" {
				last = inst.Parsed
			}
		}
	}
	return last
}

// shortMint abbreviates a mint address for the out-leg token symbol.
func shortMint(mint string) string {
	if len(mint) <= 4 {
		return mint
	}
	return mint[:4] + "..."
}
