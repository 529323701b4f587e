package partition

import "testing"

func TestForWorker_Deterministic(t *testing.T) {
	a := ForWorker("inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 42, 3)
	b := ForWorker("inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 42, 3)
	if a != b {
		t.Fatalf("partition(...) is not a pure function: %+v != %+v", a, b)
	}
}

func TestForWorker_NoReversedRange(t *testing.T) {
	addr := "inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	for epoch := uint64(0); epoch < 1200; epoch += 37 {
		for w := uint32(0); w < 1000; w += 61 {
			p := ForWorker(addr, epoch, w)
			if p.End <= p.Start {
				t.Fatalf("epoch=%d worker=%d: end (%d) <= start (%d)", epoch, w, p.End, p.Start)
			}
		}
	}
}

// TestForWorker_LastPartitionInclusiveMax covers the historical overflow
// regression: the highest partition id must reach exactly 2^64-1, never
// wrap past it or fall short.
func TestForWorker_LastPartitionInclusiveMax(t *testing.T) {
	addr := "inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	for w := uint32(0); w < PartitionCount; w++ {
		seed := SeedID(addr, w)
		// Find an epoch that rotates this seed to partition id 999.
		epoch := uint64(PartitionCount-1-int(seed)) % PartitionCount
		p := ForWorker(addr, epoch, w)
		if p.PartitionID != PartitionCount-1 {
			continue
		}
		if p.End != ^uint64(0) {
			t.Fatalf("worker=%d: last partition end = %d, want %d", w, p.End, ^uint64(0))
		}
		if p.Start >= p.End {
			t.Fatalf("worker=%d: start (%d) >= end (%d)", w, p.Start, p.End)
		}
	}
}

// TestAllForEpoch_CoversWholeSpace checks that the partitions are
// pairwise disjoint and non-empty for a representative set of worker
// counts; with 1000 workers, disjointness means they cover the whole space.
func TestAllForEpoch_CoversWholeSpace(t *testing.T) {
	addr := "inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	for _, workers := range []int{1, 3, 7, 1000} {
		parts, err := AllForEpoch(addr, 5, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		seen := make(map[uint32]bool)
		for _, p := range parts {
			if seen[p.PartitionID] {
				t.Fatalf("workers=%d: duplicate partition id %d (worker seeds collided)", workers, p.PartitionID)
			}
			seen[p.PartitionID] = true
			if p.End <= p.Start {
				t.Fatalf("workers=%d worker=%d: reversed/empty range", workers, p.WorkerID)
			}
		}
	}
}

func TestAllForEpoch_RejectsOutOfRangeWorkerCount(t *testing.T) {
	if _, err := AllForEpoch("inj1x", 0, 0); err == nil {
		t.Fatal("expected error for workers=0")
	}
	if _, err := AllForEpoch("inj1x", 0, PartitionCount+1); err == nil {
		t.Fatal("expected error for workers > PartitionCount")
	}
}

func TestEncodeNonce_BigEndian(t *testing.T) {
	got := EncodeNonce(1)
	want := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	if got != want {
		t.Fatalf("EncodeNonce(1) = %v, want %v", got, want)
	}
}

// S1 from the testable-properties scenarios: workers=3, epoch=0.
func TestScenario_S1_PartitionBoundary(t *testing.T) {
	addr := "inj1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	parts, err := AllForEpoch(addr, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range parts {
		if p.End <= p.Start {
			t.Fatalf("worker=%d: end <= start", p.WorkerID)
		}
	}
}
