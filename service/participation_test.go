package service

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/models"
)

func TestParticipationRegistry(t *testing.T) {
	registry := NewParticipationRegistry()
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if registry.HasVoted(alice) {
		t.Error("Fresh registry should report no votes")
	}

	if err := registry.MarkVoted(alice); err != nil {
		t.Fatalf("First mark failed: %v", err)
	}
	if err := registry.MarkVoted(bob); err != nil {
		t.Fatalf("Second mark failed: %v", err)
	}

	if !registry.HasVoted(alice) || !registry.HasVoted(bob) {
		t.Error("Marked identities should report as voted")
	}
	if registry.TotalVoters() != 2 {
		t.Errorf("Expected 2 voters, got %d", registry.TotalVoters())
	}

	// Second mark is a hard error, not a no-op
	if err := registry.MarkVoted(alice); !errors.Is(err, models.ErrAlreadyVoted) {
		t.Errorf("Expected %v, got %v", models.ErrAlreadyVoted, err)
	}
	if registry.TotalVoters() != 2 {
		t.Errorf("Duplicate mark should not change the count, got %d", registry.TotalVoters())
	}

	voters := registry.Voters()
	if len(voters) != 2 || voters[0] != alice || voters[1] != bob {
		t.Errorf("Voters not returned in first-vote order: %v", voters)
	}
}

func TestRestoreParticipationRegistry(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	registry := RestoreParticipationRegistry([]common.Address{alice, bob, alice})

	if registry.TotalVoters() != 2 {
		t.Errorf("Restore should dedupe, got %d voters", registry.TotalVoters())
	}
	if !registry.HasVoted(alice) || !registry.HasVoted(bob) {
		t.Error("Restored identities should report as voted")
	}
	if err := registry.MarkVoted(alice); !errors.Is(err, models.ErrAlreadyVoted) {
		t.Errorf("Expected %v after restore, got %v", models.ErrAlreadyVoted, err)
	}
}
