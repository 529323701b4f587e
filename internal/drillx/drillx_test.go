package drillx

import "testing"

func TestPlaceholderHasher_Deterministic(t *testing.T) {
	h := NewPlaceholderHasher()
	var challenge [32]byte
	s1, s2 := NewScratch(), NewScratch()
	d1 := h.Hash(challenge, 7, s1)
	d2 := h.Hash(challenge, 7, s2)
	if d1 != d2 {
		t.Fatalf("Hash(challenge, 7) not deterministic: %x != %x", d1, d2)
	}
}

func TestPlaceholderHasher_NonceSensitive(t *testing.T) {
	h := NewPlaceholderHasher()
	var challenge [32]byte
	s := NewScratch()
	d1 := h.Hash(challenge, 1, s)
	d2 := h.Hash(challenge, 2, s)
	if d1 == d2 {
		t.Fatal("digests for different nonces must differ")
	}
}

func TestLeadingZeroBits(t *testing.T) {
	cases := []struct {
		digest [DigestSize]byte
		want   uint32
	}{
		{digest: [DigestSize]byte{0xFF}, want: 0},
		{digest: [DigestSize]byte{0x00, 0xFF}, want: 8},
		{digest: [DigestSize]byte{0x0F}, want: 4},
		{digest: [DigestSize]byte{}, want: DigestSize * 8},
	}
	for _, c := range cases {
		if got := LeadingZeroBits(c.digest); got != c.want {
			t.Errorf("LeadingZeroBits(%x) = %d, want %d", c.digest, got, c.want)
		}
	}
}
