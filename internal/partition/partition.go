// Package partition deterministically maps a miner address, epoch and
// worker slot onto a disjoint sub-range of the 64-bit nonce space.
package partition

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// PartitionCount is the number of nonce partitions the space is divided
// into. It is fixed: changing it would change every miner's partition
// assignment for every past epoch.
const PartitionCount = 1000

// NonceSpace is the number of nonces owned by every partition except the
// last, which absorbs the remainder so that end == 2^64-1 exactly.
const NonceSpace = uint64(1<<64-1) / PartitionCount

// Partition is a contiguous, half-open range of the nonce space, except
// for the final partition (PartitionID == PartitionCount-1) whose End is
// inclusive of the maximum uint64 value.
type Partition struct {
	Start       uint64
	End         uint64
	PartitionID uint32
	WorkerID    uint32
}

// Inclusive reports whether End is the inclusive upper bound 2^64-1
// rather than a half-open boundary.
func (p Partition) Inclusive() bool {
	return p.PartitionID == PartitionCount-1
}

// Len returns the number of nonces covered by the partition.
func (p Partition) Len() uint64 {
	if p.Inclusive() {
		return p.End - p.Start + 1
	}
	return p.End - p.Start
}

// SeedID computes partition_seed_id = hash(minerAddress || workerID) mod
// PartitionCount. It is a pure function of its inputs.
func SeedID(minerAddress string, workerID uint32) uint32 {
	h := sha256.New()
	h.Write([]byte(minerAddress))
	var wb [4]byte
	binary.BigEndian.PutUint32(wb[:], workerID)
	h.Write(wb[:])
	sum := h.Sum(nil)
	// Use the low 64 bits of the digest; reducing mod 1000 on a
	// uniformly-distributed hash keeps the seed well spread.
	v := binary.BigEndian.Uint64(sum[len(sum)-8:])
	return uint32(v % PartitionCount)
}

// ForWorker computes the nonce partition owned by (minerAddress, workerID)
// during epochID, per the partition-id-level rotation scheme: rotation is
// applied to the partition id, never to a raw nonce, so it can never wrap
// a range into a reversed [start, end) pair the way nonce-level rotation
// did historically.
func ForWorker(minerAddress string, epochID uint64, workerID uint32) Partition {
	seed := SeedID(minerAddress, workerID)
	partitionID := uint32((uint64(seed) + epochID) % PartitionCount)

	start := uint64(partitionID) * NonceSpace
	var end uint64
	if partitionID == PartitionCount-1 {
		end = ^uint64(0) // 2^64 - 1, inclusive
	} else {
		end = start + NonceSpace
	}

	return Partition{
		Start:       start,
		End:         end,
		PartitionID: partitionID,
		WorkerID:    workerID,
	}
}

// AllForEpoch returns the partitions assigned to workers [0, workerCount)
// for a given epoch, built on ForWorker and used by the orchestrator when
// it spins up a worker pool. When a worker's seed lands on a partition id
// an earlier worker already holds, that worker takes the next free id, so
// the returned partitions are always pairwise disjoint.
func AllForEpoch(minerAddress string, epochID uint64, workerCount int) ([]Partition, error) {
	if workerCount < 1 || workerCount > PartitionCount {
		return nil, fmt.Errorf("partition: workerCount must be in [1, %d], got %d", PartitionCount, workerCount)
	}
	out := make([]Partition, workerCount)
	taken := make(map[uint32]bool, workerCount)
	for w := 0; w < workerCount; w++ {
		p := ForWorker(minerAddress, epochID, uint32(w))
		for k := uint64(1); taken[p.PartitionID]; k++ {
			p = ForWorker(minerAddress, epochID+k, uint32(w))
		}
		taken[p.PartitionID] = true
		out[w] = p
	}
	return out, nil
}

// EncodeNonce is the single shared big-endian nonce encoder used by both
// the commit and reveal paths. Endianness disagreement between the two
// paths was the source of a past rejected-reveal bug; every caller that
// needs nonce bytes must go through this function.
func EncodeNonce(nonce uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nonce)
	return b
}
