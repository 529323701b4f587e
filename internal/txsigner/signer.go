// Package txsigner turns a contract-execute message into a signed,
// broadcast-ready Cosmos transaction using EIP-712 typed-data signing.
package txsigner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/injective-mining/gminer/internal/eip712"
)

// ErrBridgeUnavailable is returned by BridgeSigner: the legacy HTTP
// sidecar is documented for interface compatibility but never actually
// dialed. The native signer is the design of record.
var ErrBridgeUnavailable = errors.New("txsigner: bridge signer has no sidecar to dial")

// Coin is a single denom/amount pair, matching the chain's Cosmos Coin
// type.
type Coin struct {
	Denom  string
	Amount string
}

// Fee is the gas fee attached to a transaction.
type Fee struct {
	Amount []Coin
	Gas    uint64
}

// ExecuteRequest describes one contract-execute message to sign and
// wrap as a transaction.
type ExecuteRequest struct {
	SenderAddr    string
	ContractAddr  string
	ExecMsg       any // marshaled to JSON and embedded as a string per the EIP-712 contract
	Funds         []Coin
	AccountNumber uint64
	Sequence      uint64
	ChainID       string // Cosmos chain-id, e.g. "injective-888"
	EthChainID    uint64 // EIP-712 domain chainId
	Fee           Fee
	Memo          string
}

// SignedTx is a transaction ready for the broadcaster: the wire bytes
// (JSON-over-REST body in this implementation, since the pack carries
// no Cosmos protobuf/gRPC stack) plus the digest that was signed, kept
// for logging and tests.
type SignedTx struct {
	TxBytes []byte
	Digest  [32]byte
}

// Signer is the capability the orchestrator depends on. NativeSigner is
// the production implementation; BridgeSigner exists only so a second
// implementation can be selected at startup per the design note on
// sidecar signing (see SPEC_FULL.md §4.5/§9).
type Signer interface {
	Address() string
	Sign(req ExecuteRequest) (SignedTx, error)
}

const (
	msgTypeExecuteContractCompat = "wasmx/MsgExecuteContractCompat"
	domainName                   = "Injective Web3"
	domainVersion                = "1.0.0"
	domainVerifyingContract      = "cosmos"
	domainSalt                   = "0"
)

// buildTypedData constructs the EIP-712 payload for a single
// contract-execute message, following the critical contracts called out
// in SPEC_FULL.md §4.5: short-form message type, msg as a JSON string,
// funds as "0" when empty, decimal-string numeric encoding everywhere
// outside the domain's chainId.
func buildTypedData(req ExecuteRequest) (eip712.TypedData, error) {
	msgJSON, err := json.Marshal(req.ExecMsg)
	if err != nil {
		return eip712.TypedData{}, fmt.Errorf("txsigner: marshal exec msg: %w", err)
	}

	fundsStr := fundsToString(req.Funds)

	msgValue := map[string]any{
		"sender":   req.SenderAddr,
		"contract": req.ContractAddr,
		"msg":      string(msgJSON),
		"funds":    fundsStr,
	}

	feeAmount := make([]any, 0, len(req.Fee.Amount))
	for _, c := range req.Fee.Amount {
		feeAmount = append(feeAmount, map[string]any{"denom": c.Denom, "amount": c.Amount})
	}

	td := eip712.TypedData{
		Types:       eip712.TxSchema,
		PrimaryType: "Tx",
		Domain: map[string]any{
			"name":              domainName,
			"version":           domainVersion,
			"chainId":           strconv.FormatUint(req.EthChainID, 10),
			"verifyingContract": domainVerifyingContract,
			"salt":              domainSalt,
		},
		Message: map[string]any{
			"account_number": strconv.FormatUint(req.AccountNumber, 10),
			"chain_id":       req.ChainID,
			"fee": map[string]any{
				"amount": feeAmount,
				"gas":    strconv.FormatUint(req.Fee.Gas, 10),
			},
			"memo": req.Memo,
			"msgs": []any{
				map[string]any{
					"type":  msgTypeExecuteContractCompat,
					"value": msgValue,
				},
			},
			"sequence":       strconv.FormatUint(req.Sequence, 10),
			"timeout_height": "0",
		},
	}
	return td, nil
}

func fundsToString(coins []Coin) string {
	if len(coins) == 0 {
		return "0"
	}
	s := ""
	for i, c := range coins {
		if i > 0 {
			s += ","
		}
		s += c.Amount + c.Denom
	}
	return s
}
