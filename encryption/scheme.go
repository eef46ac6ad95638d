package encryption

import "math/big"

// Scheme defines the interface for the additively homomorphic
// encryption backends the ledger can accumulate under. The core only
// ever encrypts the initial zero and adds ciphertexts; Decrypt exists
// for the relayer side of the boundary and is never called by the
// ledger itself.
type Scheme interface {
	// Identity information
	Name() string
	KeySize() int

	// Core operations
	Encrypt(value *big.Int) ([]byte, error)
	Decrypt(ciphertext []byte) (*big.Int, error)
	Add(ciphertext1, ciphertext2 []byte) ([]byte, error)

	// Analysis helpers
	CiphertextSize(plaintext *big.Int) int
	EstimatedSecurityBits() int
}
