// Package wallet derives the miner's signing key from a BIP-39 mnemonic
// and computes its bech32 "inj"-prefixed address, the way the chain's
// Ethereum-style (secp256k1, coin type 60) accounts are addressed.
package wallet

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// AddressHRP is the bech32 human-readable part every derived address
// uses. The chain shares Ethereum's secp256k1/keccak address scheme but
// presents it bech32-encoded with this prefix instead of as a 0x-hex
// Ethereum address.
const AddressHRP = "inj"

// derivationPath is m/44'/60'/0'/0/0 - BIP-44 with Ethereum's registered
// coin type 60, matching the chain's account derivation so a miner's
// mnemonic produces the same address an EVM wallet would show it.
var derivationPath = []uint32{
	44 + hdkeychain.HardenedKeyStart,
	60 + hdkeychain.HardenedKeyStart,
	0 + hdkeychain.HardenedKeyStart,
	0,
	0,
}

// Wallet holds the miner's derived signing key and address for the
// lifetime of the process. It is constructed once at startup from the
// configured mnemonic; the spec's Non-goals explicitly exclude any key
// custody beyond this one-shot derivation.
type Wallet struct {
	privateKey *btcec.PrivateKey
	address    string
}

// FromMnemonic validates mnemonic, derives the seed (with an optional
// BIP-39 passphrase, empty by default), and derives the signing key at
// derivationPath.
func FromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	mnemonic = normalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive master key: %w", err)
	}

	key := master
	for _, idx := range derivationPath {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("wallet: derive path component %d: %w", idx, err)
		}
	}

	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: extract private key: %w", err)
	}

	addr, err := addressFromPrivateKey(ecPriv)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive address: %w", err)
	}

	return &Wallet{privateKey: ecPriv, address: addr}, nil
}

// PrivateKey returns the derived secp256k1 private key. It never
// changes after construction.
func (w *Wallet) PrivateKey() *btcec.PrivateKey {
	return w.privateKey
}

// Address returns the bech32 "inj1..." address derived from the key.
func (w *Wallet) Address() string {
	return w.address
}

// addressFromPrivateKey computes keccak256(uncompressed_pubkey[1:])[12:]
// (the Ethereum address derivation) and bech32-encodes it with the
// AddressHRP prefix instead of rendering it as 0x-hex.
func addressFromPrivateKey(priv *btcec.PrivateKey) (string, error) {
	pub := priv.PubKey()
	uncompressed := pub.SerializeUncompressed() // 0x04 || X || Y, 65 bytes

	hash := crypto.Keccak256(uncompressed[1:])
	ethAddrBytes := hash[len(hash)-20:]

	five, err := bech32.ConvertBits(ethAddrBytes, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	return bech32.Encode(AddressHRP, five)
}

// normalizeMnemonic trims surrounding whitespace a user might paste in
// from --mnemonic or the MNEMONIC environment variable.
func normalizeMnemonic(m string) string {
	return strings.TrimSpace(m)
}
