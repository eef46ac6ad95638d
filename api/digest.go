package api

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request digests. Every authenticated request carries a recoverable
// signature over a digest that binds the operation name, the target
// ledger and the payload, so a captured signature cannot be replayed
// against another operation or another survey instance.

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func addressesBytes(viewers []common.Address) []byte {
	buf := make([]byte, 0, len(viewers)*common.AddressLength)
	for _, viewer := range viewers {
		buf = append(buf, viewer.Bytes()...)
	}
	return buf
}

// VoteDigest binds a vote submission to this ledger.
func VoteDigest(ledgerID string, optionID int, ciphertext, proof []byte) []byte {
	return crypto.Keccak256([]byte("survey-ledger.vote"), []byte(ledgerID), uint64Bytes(uint64(optionID)), ciphertext, proof)
}

// ExtendDigest binds an extend-voting request.
func ExtendDigest(ledgerID string, newEnd int64) []byte {
	return crypto.Keccak256([]byte("survey-ledger.extend"), []byte(ledgerID), uint64Bytes(uint64(newEnd)))
}

// FinalizeDigest binds a finalize request.
func FinalizeDigest(ledgerID string) []byte {
	return crypto.Keccak256([]byte("survey-ledger.finalize"), []byte(ledgerID))
}

// QueueViewersDigest binds a queue-viewers request.
func QueueViewersDigest(ledgerID string, viewers []common.Address) []byte {
	return crypto.Keccak256([]byte("survey-ledger.queue_viewers"), []byte(ledgerID), addressesBytes(viewers))
}

// RemoveViewerDigest binds a remove-queued-viewer request.
func RemoveViewerDigest(ledgerID string, viewer common.Address) []byte {
	return crypto.Keccak256([]byte("survey-ledger.remove_viewer"), []byte(ledgerID), viewer.Bytes())
}

// GrantViewersDigest binds a grant-view request.
func GrantViewersDigest(ledgerID string, viewers []common.Address) []byte {
	return crypto.Keccak256([]byte("survey-ledger.grant_viewers"), []byte(ledgerID), addressesBytes(viewers))
}

// TallyDigest binds a single-tally read request.
func TallyDigest(ledgerID string, optionID int) []byte {
	return crypto.Keccak256([]byte("survey-ledger.get_tally"), []byte(ledgerID), uint64Bytes(uint64(optionID)))
}

// TalliesDigest binds an all-tallies read request.
func TalliesDigest(ledgerID string) []byte {
	return crypto.Keccak256([]byte("survey-ledger.get_tallies"), []byte(ledgerID))
}

// ResultsDigest binds a relayer decryption request.
func ResultsDigest(ledgerID string) []byte {
	return crypto.Keccak256([]byte("survey-ledger.get_results"), []byte(ledgerID))
}
