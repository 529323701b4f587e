package txsigner

import "encoding/base64"

// stdTx is the Amino-JSON transaction envelope that chainapi.BroadcastTx
// posts to the chain's /cosmos/tx/v1beta1/txs REST endpoint. The message type string
// ("wasmx/MsgExecuteContractCompat") is itself an Amino type name, so
// this signer produces the Amino-JSON body the EIP-712 signing path
// expects rather than a protobuf-encoded tx (the pack this miner was
// built from carries no Cosmos protobuf/gRPC codec).
type stdTx struct {
	Msg        []stdMsg       `json:"msg"`
	Fee        stdFee         `json:"fee"`
	Signatures []stdSignature `json:"signatures"`
	Memo       string         `json:"memo"`
}

type stdMsg struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

type stdFee struct {
	Amount []stdCoin `json:"amount"`
	Gas    string    `json:"gas"`
}

type stdCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type stdSignature struct {
	PubKey    stdPubKey `json:"pub_key"`
	Signature string    `json:"signature"`
	// ExtensionOptions carries the Web3 extension marking EIP-712 sign
	// mode and the eth_chain_id the signature was produced against, per
	// SPEC_FULL.md §4.5's "wrapping" requirement.
	ExtensionOptions stdWeb3Extension `json:"extension_options"`
}

type stdPubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"` // base64 compressed secp256k1 pubkey
}

type stdWeb3Extension struct {
	TypeURL    string `json:"type_url"`
	EthChainID string `json:"eth_chain_id"`
	FeePayer   string `json:"fee_payer,omitempty"`
}

const web3ExtensionTypeURL = "/injective.types.v1beta1.ExtensionOptionsWeb3Tx"
const pubKeySecp256k1Type = "/injective.crypto.v1beta1.ethsecp256k1.PubKey"

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
