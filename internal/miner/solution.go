package miner

// Solution is a candidate nonce/digest pair that met or exceeded the
// epoch's difficulty threshold. Workers may emit more than one per
// epoch; the orchestrator keeps the best by LeadingZeroBits.
type Solution struct {
	WorkerID        uint32
	Nonce           uint64
	Digest          [32]byte
	LeadingZeroBits uint32
}

// Exhausted signals a worker scanned its entire partition without
// meeting the difficulty threshold. Non-fatal: the orchestrator treats
// it as "no solution from this worker this epoch."
type Exhausted struct {
	WorkerID uint32
}

// WorkerPanic reports that a worker's search loop recovered from a
// panic. The worker's own recover isolates the failure to that worker,
// logs it and stops it; the rest of the pool keeps mining.
type WorkerPanic struct {
	WorkerID uint32
	Reason   any
}
