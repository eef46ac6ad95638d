// Package relayer simulates the external decryption oracle. The ledger
// core only hands out opaque tally handles; this service holds the
// scheme's key material and turns handles into cleartext counts for
// callers the ACL has authorized. In production the equivalent runs off
// the ledger entirely.
package relayer

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/encryption"
	"survey-ledger/service"
)

// Results represents a fully decrypted survey outcome.
type Results struct {
	Title       string           `json:"title"`
	TotalVoters int              `json:"total_voters"`
	Counts      map[string]int64 `json:"counts"`
	ComputedAt  int64            `json:"computed_at"`
}

// Service decrypts tally handles on behalf of authorized viewers.
type Service struct {
	scheme encryption.Scheme
	survey *service.SurveyService
	mu     sync.RWMutex
	latest *Results
}

func New(scheme encryption.Scheme, survey *service.SurveyService) *Service {
	return &Service{scheme: scheme, survey: survey}
}

// DecryptTally resolves one option's cleartext count. Authorization and
// finalization gating happen in the ledger's GetTally; an unauthorized
// caller never reaches the decryption step.
func (r *Service) DecryptTally(caller common.Address, optionID int) (int64, error) {
	handle, err := r.survey.GetTally(caller, optionID)
	if err != nil {
		return 0, err
	}

	count, err := r.scheme.Decrypt(handle.Bytes())
	if err != nil {
		return 0, fmt.Errorf("failed to decrypt tally %d: %w", optionID, err)
	}

	return count.Int64(), nil
}

// DecryptAll resolves every option's count, keyed by option label.
func (r *Service) DecryptAll(caller common.Address) (*Results, error) {
	handles, err := r.survey.GetAllTallies(caller)
	if err != nil {
		return nil, err
	}

	options := r.survey.Options()
	counts := make(map[string]int64, len(handles))
	for i, handle := range handles {
		count, err := r.scheme.Decrypt(handle.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt tally %d: %w", i, err)
		}
		counts[options[i]] = count.Int64()
	}

	results := &Results{
		Title:       r.survey.SurveyInfo().Title,
		TotalVoters: r.survey.TotalVoters(),
		Counts:      counts,
		ComputedAt:  time.Now().Unix(),
	}

	r.mu.Lock()
	r.latest = results
	r.mu.Unlock()

	return results, nil
}

// LatestResults returns the most recently computed results, if any.
func (r *Service) LatestResults() *Results {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}
