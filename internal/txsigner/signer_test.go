package txsigner

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/injective-mining/gminer/internal/wallet"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestSigner(t *testing.T) *NativeSigner {
	t.Helper()
	w, err := wallet.FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewNativeSigner(w)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleRequest(sequence uint64) ExecuteRequest {
	return ExecuteRequest{
		ContractAddr: "inj1mdq8lej6n35lp977w9nvc7mglwc3tqh5cms42y",
		ExecMsg: map[string]any{
			"commit_solution": map[string]any{
				"commitment": "lsKzENeCwdyWWUXEN6zbTwMl3Cg3G7wJJhgne/sJ/N8=",
			},
		},
		AccountNumber: 36669,
		Sequence:      sequence,
		ChainID:       "injective-888",
		EthChainID:    1439,
		Fee: Fee{
			Amount: []Coin{{Denom: "inj", Amount: "500000000000000"}},
			Gas:    250000,
		},
	}
}

func TestNativeSigner_SignProducesValidSignature(t *testing.T) {
	s := newTestSigner(t)
	signed, err := s.Sign(sampleRequest(1))
	if err != nil {
		t.Fatal(err)
	}

	var tx stdTx
	if err := json.Unmarshal(signed.TxBytes, &tx); err != nil {
		t.Fatalf("tx bytes are not valid JSON: %v", err)
	}
	if len(tx.Signatures) != 1 {
		t.Fatalf("expected exactly one signature, got %d", len(tx.Signatures))
	}

	sigBytes, err := base64.StdEncoding.DecodeString(tx.Signatures[0].Signature)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigBytes) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sigBytes))
	}
	v := sigBytes[64]
	if v != 0 && v != 1 {
		t.Fatalf("recovery byte v = %d, want 0 or 1", v)
	}
}

// EIP-712 digest stability (property 5): identical inputs must produce
// an identical digest every time.
func TestNativeSigner_DigestStableAcrossRuns(t *testing.T) {
	s := newTestSigner(t)
	req := sampleRequest(7)
	a, err := s.Sign(req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Sign(req)
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest != b.Digest {
		t.Fatalf("digest not stable: %x != %x", a.Digest, b.Digest)
	}
}

// Property 6: sequences above 2^53-1 must not collide after encoding.
func TestNativeSigner_LargeSequenceNoPrecisionLoss(t *testing.T) {
	s := newTestSigner(t)
	const seq = uint64(1) << 60
	signed1, err := s.Sign(sampleRequest(seq))
	if err != nil {
		t.Fatal(err)
	}
	signed2, err := s.Sign(sampleRequest(seq + 1))
	if err != nil {
		t.Fatal(err)
	}
	if signed1.Digest == signed2.Digest {
		t.Fatal("adjacent large sequence values produced identical digests")
	}
}

func TestBridgeSigner_AlwaysUnavailable(t *testing.T) {
	b := NewBridgeSigner("inj1stub")
	if _, err := b.Sign(sampleRequest(1)); err != ErrBridgeUnavailable {
		t.Fatalf("expected ErrBridgeUnavailable, got %v", err)
	}
}
