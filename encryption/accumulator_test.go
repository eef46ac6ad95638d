package encryption

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"survey-ledger/models"
)

func verifiedOne(t *testing.T, scheme Scheme) VerifiedBallot {
	t.Helper()

	ciphertext, err := scheme.Encrypt(big.NewInt(1))
	if err != nil {
		t.Fatalf("Failed to encrypt ballot: %v", err)
	}
	return VerifiedBallot{ciphertext: NewCiphertext(ciphertext)}
}

func decryptTally(t *testing.T, scheme Scheme, a *Accumulator, optionID int) int64 {
	t.Helper()

	handle, err := a.Tally(optionID)
	if err != nil {
		t.Fatalf("Failed to read tally %d: %v", optionID, err)
	}
	count, err := scheme.Decrypt(handle.Bytes())
	if err != nil {
		t.Fatalf("Failed to decrypt tally %d: %v", optionID, err)
	}
	return count.Int64()
}

func TestAccumulatorStartsAtZero(t *testing.T) {
	scheme := NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	accumulator, err := NewAccumulator(scheme, 3)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	if accumulator.OptionsCount() != 3 {
		t.Errorf("Expected 3 tallies, got %d", accumulator.OptionsCount())
	}
	for i := 0; i < 3; i++ {
		if count := decryptTally(t, scheme, accumulator, i); count != 0 {
			t.Errorf("Fresh tally %d should decrypt to 0, got %d", i, count)
		}
	}
}

func TestAccumulatorAddOne(t *testing.T) {
	scheme := NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	accumulator, err := NewAccumulator(scheme, 3)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	// Two into option 0, one into option 2
	for _, optionID := range []int{0, 2, 0} {
		if err := accumulator.AddOne(optionID, verifiedOne(t, scheme)); err != nil {
			t.Fatalf("AddOne(%d) failed: %v", optionID, err)
		}
	}

	want := []int64{2, 0, 1}
	for i, expected := range want {
		if count := decryptTally(t, scheme, accumulator, i); count != expected {
			t.Errorf("Tally %d: expected %d, got %d", i, expected, count)
		}
	}
}

func TestAccumulatorRejectsBadOption(t *testing.T) {
	scheme := NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	accumulator, err := NewAccumulator(scheme, 2)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	for _, optionID := range []int{-1, 2, 99} {
		if err := accumulator.AddOne(optionID, verifiedOne(t, scheme)); !errors.Is(err, models.ErrInvalidOption) {
			t.Errorf("AddOne(%d): expected %v, got %v", optionID, models.ErrInvalidOption, err)
		}
		if _, err := accumulator.Tally(optionID); !errors.Is(err, models.ErrInvalidOption) {
			t.Errorf("Tally(%d): expected %v, got %v", optionID, models.ErrInvalidOption, err)
		}
	}
}

func TestAccumulatorConcurrentAdds(t *testing.T) {
	scheme := NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	accumulator, err := NewAccumulator(scheme, 1)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	const adds = 16
	ballots := make([]VerifiedBallot, adds)
	for i := range ballots {
		ballots[i] = verifiedOne(t, scheme)
	}

	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(ballot VerifiedBallot) {
			defer wg.Done()
			if err := accumulator.AddOne(0, ballot); err != nil {
				t.Errorf("Concurrent AddOne failed: %v", err)
			}
		}(ballots[i])
	}
	wg.Wait()

	if count := decryptTally(t, scheme, accumulator, 0); count != adds {
		t.Errorf("Expected %d after concurrent adds, got %d", adds, count)
	}
}

func TestRestoreAccumulator(t *testing.T) {
	scheme := NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	original, err := NewAccumulator(scheme, 2)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}
	if err := original.AddOne(1, verifiedOne(t, scheme)); err != nil {
		t.Fatalf("AddOne failed: %v", err)
	}

	restored := RestoreAccumulator(scheme, original.Tallies())
	if err := restored.AddOne(1, verifiedOne(t, scheme)); err != nil {
		t.Fatalf("AddOne after restore failed: %v", err)
	}

	if count := decryptTally(t, scheme, restored, 1); count != 2 {
		t.Errorf("Expected restored tally to continue at 2, got %d", count)
	}
	if count := decryptTally(t, scheme, original, 1); count != 1 {
		t.Errorf("Original accumulator should be unaffected, got %d", count)
	}
}
