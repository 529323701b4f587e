package txsigner

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strconv"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/injective-mining/gminer/internal/eip712"
	"github.com/injective-mining/gminer/internal/wallet"
)

// NativeSigner signs transactions directly with the miner's derived
// key. It is the design of record; BridgeSigner exists only as an
// interface-compatible alternative for debugging.
type NativeSigner struct {
	wallet     *wallet.Wallet
	privateKey *ecdsa.PrivateKey
}

// NewNativeSigner wraps w, converting its secp256k1 key into the
// *ecdsa.PrivateKey shape go-ethereum's signing routines expect. The
// underlying curve point is identical; this is a representation change,
// not a re-derivation.
func NewNativeSigner(w *wallet.Wallet) (*NativeSigner, error) {
	raw := w.PrivateKey().Serialize()
	ecdsaKey, err := gethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("txsigner: convert key: %w", err)
	}
	return &NativeSigner{wallet: w, privateKey: ecdsaKey}, nil
}

func (s *NativeSigner) Address() string {
	return s.wallet.Address()
}

// Sign builds the EIP-712 typed-data payload for req, hashes it,
// produces a 65-byte r||s||v signature, and wraps everything as an
// Amino-JSON transaction ready for the broadcaster.
//
// v is encoded as the raw ECDSA recovery id (0 or 1), matching the
// chain's EIP-712 ante handler contract; this differs from the 27/28
// offset convention some Ethereum tooling uses, a past source of
// signature-rejection bugs (see SPEC_FULL.md §4.5).
func (s *NativeSigner) Sign(req ExecuteRequest) (SignedTx, error) {
	req.SenderAddr = s.wallet.Address()

	td, err := buildTypedData(req)
	if err != nil {
		return SignedTx{}, err
	}

	digest, err := eip712.Hash(td)
	if err != nil {
		return SignedTx{}, fmt.Errorf("txsigner: hash typed data: %w", err)
	}

	sig, err := gethcrypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return SignedTx{}, fmt.Errorf("txsigner: sign digest: %w", err)
	}
	if len(sig) != 65 {
		return SignedTx{}, fmt.Errorf("txsigner: unexpected signature length %d", len(sig))
	}

	tx, err := wrapSignedTx(req, sig, s.wallet.PrivateKey().PubKey().SerializeCompressed())
	if err != nil {
		return SignedTx{}, err
	}

	txBytes, err := json.Marshal(tx)
	if err != nil {
		return SignedTx{}, fmt.Errorf("txsigner: marshal tx: %w", err)
	}

	return SignedTx{TxBytes: txBytes, Digest: digest}, nil
}

func wrapSignedTx(req ExecuteRequest, sig65 []byte, compressedPubKey []byte) (stdTx, error) {
	msgJSON, err := json.Marshal(req.ExecMsg)
	if err != nil {
		return stdTx{}, fmt.Errorf("txsigner: marshal exec msg: %w", err)
	}

	feeAmount := make([]stdCoin, 0, len(req.Fee.Amount))
	for _, c := range req.Fee.Amount {
		feeAmount = append(feeAmount, stdCoin{Denom: c.Denom, Amount: c.Amount})
	}

	return stdTx{
		Msg: []stdMsg{{
			Type: msgTypeExecuteContractCompat,
			Value: map[string]any{
				"sender":   req.SenderAddr,
				"contract": req.ContractAddr,
				"msg":      string(msgJSON),
				"funds":    fundsToString(req.Funds),
			},
		}},
		Fee: stdFee{
			Amount: feeAmount,
			Gas:    strconv.FormatUint(req.Fee.Gas, 10),
		},
		Signatures: []stdSignature{{
			PubKey:    stdPubKey{Type: pubKeySecp256k1Type, Value: encodeBase64(compressedPubKey)},
			Signature: encodeBase64(sig65),
			ExtensionOptions: stdWeb3Extension{
				TypeURL:    web3ExtensionTypeURL,
				EthChainID: strconv.FormatUint(req.EthChainID, 10),
			},
		}},
		Memo: req.Memo,
	}, nil
}
