// Package commitment builds the commit-reveal binding the
// mining contract uses to stop miners from front-running observed
// solutions.
package commitment

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/injective-mining/gminer/internal/partition"
)

// SaltSize is the width of the per-epoch salt in bytes.
const SaltSize = 32

// Commitment binds a solution to a miner for the commit phase. Salt must
// be retained until reveal; losing it forfeits the reward.
type Commitment struct {
	Hash [32]byte
	Salt [SaltSize]byte
}

// Build samples a fresh CSPRNG salt and computes
// commitment = keccak256(minerAddr || nonce_be8 || digest || salt).
//
// Nonce is always encoded through partition.EncodeNonce so the commit
// and reveal paths can never disagree on byte order.
func Build(minerAddr string, nonce uint64, digest [32]byte) (Commitment, error) {
	var salt [SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return Commitment{}, fmt.Errorf("commitment: generate salt: %w", err)
	}
	return BuildWithSalt(minerAddr, nonce, digest, salt)
}

// BuildWithSalt computes the commitment for an explicit salt. Used by
// Build and directly by tests, which must reproduce the exact same
// preimage for a given salt.
func BuildWithSalt(minerAddr string, nonce uint64, digest [32]byte, salt [SaltSize]byte) (Commitment, error) {
	nonceBytes := partition.EncodeNonce(nonce)

	preimage := make([]byte, 0, len(minerAddr)+len(nonceBytes)+len(digest)+len(salt))
	preimage = append(preimage, []byte(minerAddr)...)
	preimage = append(preimage, nonceBytes[:]...)
	preimage = append(preimage, digest[:]...)
	preimage = append(preimage, salt[:]...)

	var out Commitment
	out.Salt = salt
	copy(out.Hash[:], crypto.Keccak256(preimage))
	return out, nil
}
