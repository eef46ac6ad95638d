package service

import (
	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/models"
)

// ParticipationRegistry tracks which identities have cast a ballot.
// Entries are monotonic: once marked, never reset.
type ParticipationRegistry struct {
	voted map[common.Address]bool
	order []common.Address
}

func NewParticipationRegistry() *ParticipationRegistry {
	return &ParticipationRegistry{
		voted: make(map[common.Address]bool),
	}
}

// RestoreParticipationRegistry rebuilds a registry from persisted voters.
func RestoreParticipationRegistry(voters []common.Address) *ParticipationRegistry {
	registry := NewParticipationRegistry()
	for _, voter := range voters {
		if !registry.voted[voter] {
			registry.voted[voter] = true
			registry.order = append(registry.order, voter)
		}
	}
	return registry
}

// HasVoted is a pure lookup.
func (pr *ParticipationRegistry) HasVoted(identity common.Address) bool {
	return pr.voted[identity]
}

// MarkVoted records a first vote. A second call for the same identity
// is a hard error rather than a silent no-op, so callers cannot probe
// state through it.
func (pr *ParticipationRegistry) MarkVoted(identity common.Address) error {
	if pr.voted[identity] {
		return models.ErrAlreadyVoted
	}
	pr.voted[identity] = true
	pr.order = append(pr.order, identity)
	return nil
}

// TotalVoters returns the count of distinct marked identities.
func (pr *ParticipationRegistry) TotalVoters() int {
	return len(pr.order)
}

// Voters returns the marked identities in first-vote order.
func (pr *ParticipationRegistry) Voters() []common.Address {
	voters := make([]common.Address, len(pr.order))
	copy(voters, pr.order)
	return voters
}
