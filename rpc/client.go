// Package rpc provides the JSON-RPC client for the source chain:
// range queries over storage keys plus the handful of read calls the
// fork run needs for block pinning and logging.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/luxfi/fork"
)

// rpcRequest represents a JSON-RPC request
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC response
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError represents a JSON-RPC error
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RuntimeVersion is the subset of state_getRuntimeVersion the tool
// reports.
type RuntimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

// Client issues JSON-RPC calls against one chain endpoint. Safe for
// concurrent use; quick-mode fetches share one client.
type Client struct {
	endpoint string
	client   *http.Client

	requestID atomic.Int64
}

// NewClient creates a client for the given HTTP endpoint.
func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("RPC endpoint required")
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{},
	}, nil
}

// GetPairs returns every key-value pair whose key starts with prefix,
// as of block hash at ("" means chain head).
func (c *Client) GetPairs(ctx context.Context, prefix string, at string) ([]fork.KeyValuePair, error) {
	params := []interface{}{prefix}
	if at != "" {
		params = append(params, at)
	}

	result, err := c.call(ctx, "state_getPairs", params)
	if err != nil {
		return nil, err
	}

	var pairs []fork.KeyValuePair
	if err := json.Unmarshal(result, &pairs); err != nil {
		return nil, fmt.Errorf("parse state_getPairs result: %w", err)
	}
	return pairs, nil
}

// BlockHash resolves a block number to its hash; nil returns the
// current head hash.
func (c *Client) BlockHash(ctx context.Context, number *uint64) (string, error) {
	params := []interface{}{}
	if number != nil {
		params = append(params, *number)
	}
	return c.callString(ctx, "chain_getBlockHash", params)
}

// ResolveBlock turns an operator-supplied block reference into the
// block hash range queries get pinned to. "" passes through (chain
// head), a 0x-prefixed hash passes through verbatim, and a decimal
// block number is resolved via chain_getBlockHash.
func (c *Client) ResolveBlock(ctx context.Context, ref string) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "0x") {
		return ref, nil
	}
	number, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return "", fmt.Errorf("block reference %q: want a block number or 0x-prefixed hash", ref)
	}
	return c.BlockHash(ctx, &number)
}

// SystemChain returns the chain's human-readable name.
func (c *Client) SystemChain(ctx context.Context) (string, error) {
	return c.callString(ctx, "system_chain", nil)
}

// GetRuntimeVersion returns the runtime version at the chain head.
func (c *Client) GetRuntimeVersion(ctx context.Context) (*RuntimeVersion, error) {
	result, err := c.call(ctx, "state_getRuntimeVersion", nil)
	if err != nil {
		return nil, err
	}
	var version RuntimeVersion
	if err := json.Unmarshal(result, &version); err != nil {
		return nil, fmt.Errorf("parse runtime version: %w", err)
	}
	return &version, nil
}

// call executes a JSON-RPC call and returns the result.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fork.ErrRPCConnectionFailed, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// callString executes a JSON-RPC call and returns the result as a
// string.
func (c *Client) callString(ctx context.Context, method string, params []interface{}) (string, error) {
	result, err := c.call(ctx, method, params)
	if err != nil {
		return "", err
	}

	var str string
	if err := json.Unmarshal(result, &str); err != nil {
		return "", fmt.Errorf("parse string result: %w", err)
	}
	return str, nil
}

// Ensure Client implements fork.StateSource
var _ fork.StateSource = (*Client)(nil)
