package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a parsed transaction by signature.
	// Returns nil without error when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a parsed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 when unavailable
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains settlement metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64 // lamports per account key, pre-execution
	PostBalances      []uint64 // lamports per account key, post-execution
	InnerInstructions []InnerInstructionSet
}

// InnerInstructionSet groups the inner instructions emitted by one
// top-level instruction.
type InnerInstructionSet struct {
	Index        int
	Instructions []ParsedInstruction
}

// ParsedInstruction is one jsonParsed-encoded instruction.
// Parsed is nil for instructions the node could not decode.
type ParsedInstruction struct {
	Program string
	Parsed  *InstructionDetail
}

// InstructionDetail carries the decoded instruction type and payload.
type InstructionDetail struct {
	Type string
	Info TransferInfo
}

// TransferInfo is the payload of transfer/transferChecked instructions.
// Fields not present on a given instruction type are left zero.
type TransferInfo struct {
	Mint        string
	Amount      string // raw units, plain "transfer"
	TokenAmount *TokenAmount
	Source      string
	Destination string
}

// TokenAmount is the amount object of a transferChecked instruction.
type TokenAmount struct {
	Amount   string
	Decimals int
}

// TransactionMessage contains the parsed instruction message.
type TransactionMessage struct {
	AccountKeys []AccountKey
}

// AccountKey is one entry of the transaction's account list.
type AccountKey struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Signer returns the index and pubkey of the first signing account,
// or -1 and "" when the message has no signer.
func (m *TransactionMessage) Signer() (int, string) {
	if m == nil {
		return -1, ""
	}
	for i, k := range m.AccountKeys {
		if k.Signer {
			return i, k.Pubkey
		}
	}
	return -1, ""
}
