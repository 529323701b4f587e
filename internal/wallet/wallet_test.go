package wallet

import "testing"

// testMnemonic is the standard all-zero BIP-39 test vector mnemonic.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestFromMnemonic_DerivesInjAddress(t *testing.T) {
	w, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	if w.Address()[:len(AddressHRP)] != AddressHRP {
		t.Fatalf("address %q does not start with HRP %q", w.Address(), AddressHRP)
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	w1, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	w2, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	if w1.Address() != w2.Address() {
		t.Fatalf("same mnemonic produced different addresses: %s != %s", w1.Address(), w2.Address())
	}
}

func TestFromMnemonic_RejectsInvalid(t *testing.T) {
	if _, err := FromMnemonic("not a real mnemonic phrase at all", ""); err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestFromMnemonic_PassphraseChangesAddress(t *testing.T) {
	w1, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	w2, err := FromMnemonic(testMnemonic, "extra-passphrase")
	if err != nil {
		t.Fatal(err)
	}
	if w1.Address() == w2.Address() {
		t.Fatal("different passphrases produced the same address")
	}
}

func TestFromMnemonic_TrimsWhitespace(t *testing.T) {
	w1, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	w2, err := FromMnemonic("  "+testMnemonic+"\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if w1.Address() != w2.Address() {
		t.Fatal("surrounding whitespace changed the derived address")
	}
}
