package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Outcome classifies how an epoch ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRevealed  Outcome = "revealed"
	OutcomeClaimed   Outcome = "claimed"
	OutcomeMissed    Outcome = "missed"
)

// EpochRecord is one terminal outcome entry in the audit trail. It is
// purely informational: the orchestrator's control-flow correctness
// never depends on reading it back.
type EpochRecord struct {
	EpochID      uint64    `json:"epoch_id"`
	Outcome      Outcome   `json:"outcome"`
	CommitTxHash string    `json:"commit_tx_hash,omitempty"`
	RevealTxHash string    `json:"reveal_tx_hash,omitempty"`
	ClaimTxHash  string    `json:"claim_tx_hash,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

var bucketEpochs = []byte("epochs")

// History is a write-through, bbolt-backed store of EpochRecords, keyed
// by epoch_id. Reads are served from an in-memory map loaded once at
// open time; writes go to both memory and disk, matching the teacher's
// write-through share store.
type History struct {
	mu      sync.RWMutex
	db      *bbolt.DB
	records map[uint64]EpochRecord
	logger  *zap.Logger
}

// OpenHistory opens (or creates) a bbolt database at path and loads all
// existing records into memory.
func OpenHistory(path string, logger *zap.Logger) (*History, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("state: open history db: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEpochs)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: create history bucket: %w", err)
	}

	h := &History{
		db:      db,
		records: make(map[uint64]EpochRecord),
		logger:  logger,
	}

	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEpochs)
		return b.ForEach(func(k, v []byte) error {
			var rec EpochRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode epoch record %x: %w", k, err)
			}
			h.records[rec.EpochID] = rec
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("state: load history: %w", err)
	}

	logger.Info("history loaded from disk", zap.Int("records", len(h.records)))
	return h, nil
}

// Record upserts rec, merging it onto any prior record for the same
// epoch: rec's Outcome and RecordedAt replace the prior values, but a
// tx-hash field rec leaves empty keeps its previously recorded value,
// so committed → revealed → claimed progression accumulates all three
// hashes instead of the later write erasing the earlier ones.
func (h *History) Record(rec EpochRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prior, ok := h.records[rec.EpochID]; ok {
		if rec.CommitTxHash == "" {
			rec.CommitTxHash = prior.CommitTxHash
		}
		if rec.RevealTxHash == "" {
			rec.RevealTxHash = prior.RevealTxHash
		}
		if rec.ClaimTxHash == "" {
			rec.ClaimTxHash = prior.ClaimTxHash
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("state: marshal epoch record: %w", err)
	}

	key := epochKey(rec.EpochID)
	if err := h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEpochs).Put(key, data)
	}); err != nil {
		return fmt.Errorf("state: persist epoch record: %w", err)
	}

	h.records[rec.EpochID] = rec
	return nil
}

// Get returns the recorded outcome for epochID, if any.
func (h *History) Get(epochID uint64) (EpochRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[epochID]
	return rec, ok
}

// Count returns the number of recorded epochs.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

func (h *History) Close() error {
	return h.db.Close()
}

func epochKey(epochID uint64) []byte {
	return []byte(fmt.Sprintf("%020d", epochID))
}
