package encryption

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/models"
)

// VerifiedBallot is a ciphertext that passed proof verification. Only
// the verifier can construct one, so the accumulator never sees an
// unchecked ciphertext.
type VerifiedBallot struct {
	ciphertext Ciphertext
}

// Ciphertext returns the verified encrypted handle.
func (b VerifiedBallot) Ciphertext() Ciphertext {
	return b.ciphertext
}

// BallotVerifier checks inbound ciphertext+proof pairs before they
// reach the accumulator. The proof is the submitter's recoverable
// signature over the binding digest of (ciphertext, submitter, ledger);
// the attestation that the ciphertext encrypts exactly one is supplied
// by the external encryption service when it issues the proof.
type BallotVerifier struct {
	crypto       *CryptoService
	scheme       Scheme
	optionsCount int
	ledgerID     string
}

func NewBallotVerifier(crypto *CryptoService, scheme Scheme, optionsCount int, ledgerID string) *BallotVerifier {
	return &BallotVerifier{
		crypto:       crypto,
		scheme:       scheme,
		optionsCount: optionsCount,
		ledgerID:     ledgerID,
	}
}

// BallotDigest is the digest a ballot proof must sign. Binding the
// submitter and ledger identity into the digest prevents replaying a
// valid ciphertext against another survey or by another submitter.
func (v *BallotVerifier) BallotDigest(ciphertext []byte, submitter common.Address) []byte {
	return v.crypto.Keccak256(ciphertext, submitter.Bytes(), []byte(v.ledgerID))
}

// Verify validates a ballot submission and returns the verified handle.
func (v *BallotVerifier) Verify(optionID int, ciphertext, proof []byte, submitter common.Address) (VerifiedBallot, error) {
	if optionID < 0 || optionID >= v.optionsCount {
		return VerifiedBallot{}, fmt.Errorf("option %d: %w", optionID, models.ErrInvalidOption)
	}

	if models.IsZeroAddress(submitter) {
		return VerifiedBallot{}, fmt.Errorf("zero submitter: %w", models.ErrInvalidProof)
	}

	if len(ciphertext) == 0 {
		return VerifiedBallot{}, fmt.Errorf("empty ciphertext: %w", models.ErrInvalidProof)
	}

	// Shape check against the configured scheme. A ciphertext that is
	// wildly larger than one encrypting a unit value cannot have come
	// from the encryption service.
	if max := 4 * v.scheme.CiphertextSize(big.NewInt(1)); len(ciphertext) > max {
		return VerifiedBallot{}, fmt.Errorf("ciphertext size %d exceeds %d: %w", len(ciphertext), max, models.ErrInvalidProof)
	}

	recovered, err := v.crypto.RecoverAddress(v.BallotDigest(ciphertext, submitter), proof)
	if err != nil {
		return VerifiedBallot{}, fmt.Errorf("proof recovery failed: %w", models.ErrInvalidProof)
	}
	if recovered != submitter {
		return VerifiedBallot{}, fmt.Errorf("proof bound to %s, submitted by %s: %w",
			recovered.Hex(), submitter.Hex(), models.ErrInvalidProof)
	}

	return VerifiedBallot{ciphertext: NewCiphertext(ciphertext)}, nil
}
