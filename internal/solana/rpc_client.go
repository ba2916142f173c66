package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single RPC attempt end to end.
const DefaultTimeout = 20 * time.Second

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
// One call is one attempt; retry policy belongs to the caller so that
// each retry can target a different node.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the RPC endpoint URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC call.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// GetTransaction retrieves a parsed transaction by signature.
// Returns nil without error when the node does not know the signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}

	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}

	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:          result.Meta.Err,
			LogMessages:  result.Meta.LogMessages,
			PreBalances:  result.Meta.PreBalances,
			PostBalances: result.Meta.PostBalances,
		}
		for _, inner := range result.Meta.InnerInstructions {
			set := InnerInstructionSet{Index: inner.Index}
			for _, inst := range inner.Instructions {
				set.Instructions = append(set.Instructions, convertInstruction(inst))
			}
			tx.Meta.InnerInstructions = append(tx.Meta.InnerInstructions, set)
		}
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		msg := &TransactionMessage{}
		for _, k := range result.Transaction.Message.AccountKeys {
			msg.AccountKeys = append(msg.AccountKeys, AccountKey{
				Pubkey:   k.Pubkey,
				Signer:   k.Signer,
				Writable: k.Writable,
			})
		}
		tx.Message = msg
	}

	return tx, nil
}

// convertInstruction maps a raw jsonParsed instruction to the domain shape.
func convertInstruction(raw rawInstruction) ParsedInstruction {
	inst := ParsedInstruction{Program: raw.Program}
	if raw.Parsed == nil {
		return inst
	}

	detail := &InstructionDetail{Type: raw.Parsed.Type}
	if raw.Parsed.Info != nil {
		detail.Info = TransferInfo{
			Mint:        raw.Parsed.Info.Mint,
			Amount:      raw.Parsed.Info.Amount,
			Source:      raw.Parsed.Info.Source,
			Destination: raw.Parsed.Info.Destination,
		}
		if raw.Parsed.Info.TokenAmount != nil {
			detail.Info.TokenAmount = &TokenAmount{
				Amount:   raw.Parsed.Info.TokenAmount.Amount,
				Decimals: raw.Parsed.Info.TokenAmount.Decimals,
			}
		}
	}
	inst.Parsed = detail
	return inst
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}        `json:"err"`
	LogMessages       []string           `json:"logMessages"`
	PreBalances       []uint64           `json:"preBalances"`
	PostBalances      []uint64           `json:"postBalances"`
	InnerInstructions []rawInnerInstrSet `json:"innerInstructions"`
}

type rawInnerInstrSet struct {
	Index        int              `json:"index"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawInstruction struct {
	Program string           `json:"program"`
	Parsed  *rawParsedDetail `json:"parsed"`
}

// rawParsedDetail tolerates both object and string forms of "parsed".
type rawParsedDetail struct {
	Type string           `json:"type"`
	Info *rawTransferInfo `json:"info"`
}

// UnmarshalJSON accepts either a detail object or a bare string; some
// programs report "parsed" as a plain instruction name.
func (d *rawParsedDetail) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d.Type = s
		return nil
	}
	type alias rawParsedDetail
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = rawParsedDetail(a)
	return nil
}

type rawTransferInfo struct {
	Mint        string          `json:"mint"`
	Amount      string          `json:"amount"`
	TokenAmount *rawTokenAmount `json:"tokenAmount"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
}

type rawTokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []rawAccountKey `json:"accountKeys"`
}

type rawAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}
