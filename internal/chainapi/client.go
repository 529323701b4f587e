// Package chainapi is a thin REST client over the chain's query and
// broadcast endpoints. The retrieval pack this miner was built from
// carries no Cosmos gRPC/protobuf stack, so every call here goes over
// plain JSON-over-HTTP, mirroring weisyn-go-weisyn's transport.RESTClient
// get/post helpers.
package chainapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Phase mirrors the contract's epoch phase enum.
type Phase string

const (
	PhaseCommit     Phase = "commit"
	PhaseReveal     Phase = "reveal"
	PhaseSettlement Phase = "settlement"
)

// EpochState is the response shape of QueryEpochState.
type EpochState struct {
	EpochID      uint64  `json:"epoch_id"`
	Phase        Phase   `json:"phase"`
	StartHeight  uint64  `json:"start_height"`
	EndHeight    uint64  `json:"end_height"`
	Difficulty   uint32  `json:"difficulty"`
	Challenge    [32]byte
	ChallengeB64 string `json:"challenge"` // base64, decoded into Challenge by QueryEpochState
}

// Account is the response shape of QueryAccount.
type Account struct {
	AccountNumber uint64 `json:"account_number"`
	Sequence      uint64 `json:"sequence"`
}

// BroadcastResult is the response shape of BroadcastTx.
type BroadcastResult struct {
	TxHash string `json:"tx_hash"`
	Code   uint32 `json:"code"`
	RawLog string `json:"raw_log"`
}

// Client wraps net/http.Client with the chain's four query/broadcast
// endpoints. It carries no retry policy of its own; Chain Clock and
// Broadcaster apply backoff around these calls.
type Client struct {
	baseURL         string
	contractAddress string
	httpClient      *http.Client
}

// New constructs a Client against baseURL (the chain's LCD REST root).
func New(baseURL, contractAddress string, timeout time.Duration) *Client {
	return &Client{
		baseURL:         baseURL,
		contractAddress: contractAddress,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// QueryEpochState fetches the contract's current epoch state.
func (c *Client) QueryEpochState(ctx context.Context) (EpochState, error) {
	var raw struct {
		EpochID     uint64 `json:"epoch_id"`
		Phase       Phase  `json:"phase"`
		StartHeight uint64 `json:"start_height"`
		EndHeight   uint64 `json:"end_height"`
		Difficulty  uint32 `json:"difficulty"`
		Challenge   string `json:"challenge"`
	}
	path := fmt.Sprintf("/cosmwasm/wasm/v1/contract/%s/smart/epoch_state", c.contractAddress)
	if err := c.get(ctx, path, &raw); err != nil {
		return EpochState{}, fmt.Errorf("chainapi: query epoch state: %w", err)
	}
	out := EpochState{
		EpochID:      raw.EpochID,
		Phase:        raw.Phase,
		StartHeight:  raw.StartHeight,
		EndHeight:    raw.EndHeight,
		Difficulty:   raw.Difficulty,
		ChallengeB64: raw.Challenge,
	}
	decoded, err := decodeBase64Into32(raw.Challenge)
	if err != nil {
		return EpochState{}, fmt.Errorf("chainapi: decode challenge: %w", err)
	}
	out.Challenge = decoded
	return out, nil
}

// QueryBlockHeight fetches the latest block height.
func (c *Client) QueryBlockHeight(ctx context.Context) (uint64, error) {
	var raw struct {
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/blocks/latest", &raw); err != nil {
		return 0, fmt.Errorf("chainapi: query block height: %w", err)
	}
	var height uint64
	if _, err := fmt.Sscanf(raw.Block.Header.Height, "%d", &height); err != nil {
		return 0, fmt.Errorf("chainapi: parse height %q: %w", raw.Block.Header.Height, err)
	}
	return height, nil
}

// QueryAccount fetches account_number and sequence for addr.
func (c *Client) QueryAccount(ctx context.Context, addr string) (Account, error) {
	var raw struct {
		Account struct {
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"account"`
	}
	path := fmt.Sprintf("/cosmos/auth/v1beta1/accounts/%s", addr)
	if err := c.get(ctx, path, &raw); err != nil {
		return Account{}, fmt.Errorf("chainapi: query account: %w", err)
	}
	var acc Account
	if _, err := fmt.Sscanf(raw.Account.AccountNumber, "%d", &acc.AccountNumber); err != nil {
		return Account{}, fmt.Errorf("chainapi: parse account_number: %w", err)
	}
	if _, err := fmt.Sscanf(raw.Account.Sequence, "%d", &acc.Sequence); err != nil {
		return Account{}, fmt.Errorf("chainapi: parse sequence: %w", err)
	}
	return acc, nil
}

// BroadcastTx submits signed tx bytes and returns the chain's result.
func (c *Client) BroadcastTx(ctx context.Context, txBytes []byte) (BroadcastResult, error) {
	body := map[string]any{
		"tx":   json.RawMessage(txBytes),
		"mode": "sync",
	}
	var raw struct {
		TxResponse struct {
			TxHash string `json:"txhash"`
			Code   uint32 `json:"code"`
			RawLog string `json:"raw_log"`
		} `json:"tx_response"`
	}
	if err := c.post(ctx, "/cosmos/tx/v1beta1/txs", body, &raw); err != nil {
		return BroadcastResult{}, fmt.Errorf("chainapi: broadcast tx: %w", err)
	}
	return BroadcastResult{
		TxHash: raw.TxResponse.TxHash,
		Code:   raw.TxResponse.Code,
		RawLog: raw.TxResponse.RawLog,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
