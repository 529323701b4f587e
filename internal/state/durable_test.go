package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_MutateAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	st, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	err = st.Mutate(func(s *DurableState) {
		s.LastSeenEpoch = 53
		s.CommittedEpochs = append(s.CommittedEpochs, 53)
		s.AccountNumber = 36669
		s.AccountSequence = 1 << 60
	})
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	snap := reloaded.Snapshot()
	if snap.LastSeenEpoch != 53 || snap.AccountSequence != 1<<60 {
		t.Fatalf("unexpected reloaded state: %+v", snap)
	}
	if len(snap.CommittedEpochs) != 1 || snap.CommittedEpochs[0] != 53 {
		t.Fatalf("unexpected committed epochs: %v", snap.CommittedEpochs)
	}
}

// Round-trip / idempotence: serialize-then-parse must be the identity.
func TestDurableState_SerializeThenParseIsIdentity(t *testing.T) {
	original := DurableState{
		Version:       1,
		LastSeenEpoch: 7,
		CommittedEpochs: []uint64{1, 2, 3},
		PendingReveal: &PendingReveal{
			Epoch:  7,
			Nonce:  EncodeNonceDecimal(9007199254740993),
			Digest: EncodeDigestBase64([32]byte{1}),
			Salt:   EncodeDigestBase64([32]byte{2}),
		},
		AccountNumber:   1,
		AccountSequence: 2,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var parsed DurableState
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	data2, err := json.Marshal(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(data2) {
		t.Fatalf("serialize-then-parse is not the identity:\n%s\n%s", data, data2)
	}
}

func TestStore_CommittedEpochsRingBufferCap(t *testing.T) {
	dir := t.TempDir()
	st, err := Load(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}

	for i := uint64(0); i < committedEpochsLimit+5; i++ {
		epoch := i
		if err := st.Mutate(func(s *DurableState) {
			s.CommittedEpochs = append(s.CommittedEpochs, epoch)
		}); err != nil {
			t.Fatal(err)
		}
	}

	snap := st.Snapshot()
	if len(snap.CommittedEpochs) != committedEpochsLimit {
		t.Fatalf("len(CommittedEpochs) = %d, want %d", len(snap.CommittedEpochs), committedEpochsLimit)
	}
	if snap.CommittedEpochs[len(snap.CommittedEpochs)-1] != committedEpochsLimit+4 {
		t.Fatalf("ring buffer did not retain the most recent epoch: %v", snap.CommittedEpochs)
	}
}

func TestLoad_MissingFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	st, err := Load(filepath.Join(dir, "nonexistent.json"))
	if err != nil {
		t.Fatal(err)
	}
	snap := st.Snapshot()
	if snap.Version != 1 || snap.LastSeenEpoch != 0 {
		t.Fatalf("unexpected fresh state: %+v", snap)
	}
}

func TestLoad_CorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error loading corrupt state file")
	}
}
