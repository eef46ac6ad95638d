package encryption

import (
	"fmt"
	"math/big"
	"sync"

	"survey-ledger/models"
)

// Accumulator holds one opaque encrypted tally per option and exposes a
// single homomorphic operation: adding a verified encrypted one. Each
// add replaces the stored handle with the scheme's sum of the latest
// handle and the ballot, under the accumulator's own lock, so
// concurrent adds into the same option cannot lose updates.
type Accumulator struct {
	mu      sync.Mutex
	scheme  Scheme
	tallies []Ciphertext
}

// NewAccumulator creates one tally per option, initialized to an
// encrypted zero.
func NewAccumulator(scheme Scheme, optionsCount int) (*Accumulator, error) {
	tallies := make([]Ciphertext, optionsCount)
	for i := range tallies {
		zero, err := scheme.Encrypt(new(big.Int))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tally %d: %w", i, err)
		}
		tallies[i] = NewCiphertext(zero)
	}

	return &Accumulator{scheme: scheme, tallies: tallies}, nil
}

// RestoreAccumulator rebuilds an accumulator from persisted handles.
func RestoreAccumulator(scheme Scheme, tallies []Ciphertext) *Accumulator {
	restored := make([]Ciphertext, len(tallies))
	copy(restored, tallies)
	return &Accumulator{scheme: scheme, tallies: restored}
}

// AddOne folds a verified ballot into the option's tally.
func (a *Accumulator) AddOne(optionID int, ballot VerifiedBallot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if optionID < 0 || optionID >= len(a.tallies) {
		return fmt.Errorf("option %d: %w", optionID, models.ErrInvalidOption)
	}

	sum, err := a.scheme.Add(a.tallies[optionID].Bytes(), ballot.Ciphertext().Bytes())
	if err != nil {
		return fmt.Errorf("homomorphic add failed: %w", err)
	}

	a.tallies[optionID] = NewCiphertext(sum)
	return nil
}

// Tally returns the current handle for one option.
func (a *Accumulator) Tally(optionID int) (Ciphertext, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if optionID < 0 || optionID >= len(a.tallies) {
		return Ciphertext{}, fmt.Errorf("option %d: %w", optionID, models.ErrInvalidOption)
	}
	return a.tallies[optionID], nil
}

// Tallies returns a copy of all option handles in option order.
func (a *Accumulator) Tallies() []Ciphertext {
	a.mu.Lock()
	defer a.mu.Unlock()

	tallies := make([]Ciphertext, len(a.tallies))
	copy(tallies, a.tallies)
	return tallies
}

// OptionsCount returns the number of tallies.
func (a *Accumulator) OptionsCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tallies)
}
