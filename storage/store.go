package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/models"
)

// Snapshot is the full persisted state of one survey ledger instance.
// Tally handles are stored hex-encoded and stay opaque at rest. Window
// bounds are Unix nanoseconds so a restored lifecycle keeps the exact
// creation-time instants.
type Snapshot struct {
	LedgerID       string           `json:"ledger_id"`
	Title          string           `json:"title"`
	Options        []string         `json:"options"`
	Admin          common.Address   `json:"admin"`
	VotingStart    int64            `json:"voting_start"`
	VotingEnd      int64            `json:"voting_end"`
	Finalized      bool             `json:"finalized"`
	Voters         []common.Address `json:"voters"`
	QueuedViewers  []common.Address `json:"queued_viewers"`
	GrantedViewers []common.Address `json:"granted_viewers"`
	Tallies        []string         `json:"tallies"`
	Events         []*models.Event  `json:"events"`
	SavedAt        int64            `json:"saved_at"`
}

const snapshotFile = "ledger.json"

// LedgerStore persists ledger snapshots as JSON under a base directory.
// Writes go through a temp file and an atomic rename so a crashed save
// never leaves a half-written snapshot behind.
type LedgerStore struct {
	basePath string
	mu       sync.RWMutex
}

func NewLedgerStore(basePath string) (*LedgerStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}
	return &LedgerStore{basePath: basePath}, nil
}

// Save writes the snapshot, replacing any previous one.
func (s *LedgerStore) Save(snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}

	path := filepath.Join(s.basePath, snapshotFile)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %v", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save snapshot file: %v", err)
	}

	return nil
}

// Load reads the persisted snapshot. Returns (nil, nil) when no
// snapshot exists yet.
func (s *LedgerStore) Load() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.basePath, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %v", err)
	}

	return &snapshot, nil
}
