package encryption

import (
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
)

// ElGamalCiphertext represents an EC ElGamal ciphertext.
type ElGamalCiphertext struct {
	C1 []byte // First component (ephemeral key)
	C2 []byte // Second component (encrypted message)
}

// ElGamalAdapter implements additively homomorphic exponential ElGamal
// over a NIST curve. Tallies are encoded as m*G, so decryption solves a
// small discrete log and is only practical for counts up to maxTally.
type ElGamalAdapter struct {
	keySize    int
	maxTally   int
	curve      elliptic.Curve
	privateKey *big.Int
	publicKeyX *big.Int
	publicKeyY *big.Int
}

// Tally counts are bounded by the number of participants, which keeps
// the discrete-log search space small.
const defaultMaxTally = 100000

// NewElGamalAdapter creates a new adapter for ElGamal encryption.
func NewElGamalAdapter(keySize int) *ElGamalAdapter {
	var curve elliptic.Curve

	switch keySize {
	case 256:
		curve = elliptic.P256()
	case 384:
		curve = elliptic.P384()
	case 521:
		curve = elliptic.P521()
	default:
		curve = elliptic.P256()
		keySize = 256
	}

	return &ElGamalAdapter{
		keySize:  keySize,
		maxTally: defaultMaxTally,
		curve:    curve,
	}
}

// Initialize generates keys for the scheme.
func (e *ElGamalAdapter) Initialize() error {
	privKeyBytes, x, y, err := elliptic.GenerateKey(e.curve, rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ElGamal key: %v", err)
	}

	e.privateKey = new(big.Int).SetBytes(privKeyBytes)
	e.publicKeyX = x
	e.publicKeyY = y

	return nil
}

// Name returns the name of the encryption scheme.
func (e *ElGamalAdapter) Name() string {
	return fmt.Sprintf("ElGamal-EC-%d", e.keySize)
}

// KeySize returns the key size in bits.
func (e *ElGamalAdapter) KeySize() int {
	return e.keySize
}

// Encrypt encrypts a small non-negative value.
func (e *ElGamalAdapter) Encrypt(value *big.Int) ([]byte, error) {
	if e.publicKeyX == nil || e.publicKeyY == nil {
		return nil, fmt.Errorf("public key not set")
	}

	msgX, msgY := e.mapValueToPoint(value)

	// Generate ephemeral key
	r, err := rand.Int(rand.Reader, e.curve.Params().N)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %v", err)
	}

	// C1 = g^r
	c1X, c1Y := e.curve.ScalarBaseMult(r.Bytes())

	// Shared secret s = h^r
	sX, sY := e.curve.ScalarMult(e.publicKeyX, e.publicKeyY, r.Bytes())

	// C2 = M + s
	c2X, c2Y := e.curve.Add(msgX, msgY, sX, sY)

	ciphertext := ElGamalCiphertext{
		C1: elliptic.Marshal(e.curve, c1X, c1Y),
		C2: elliptic.Marshal(e.curve, c2X, c2Y),
	}

	return json.Marshal(ciphertext)
}

// Decrypt recovers the tally count from a ciphertext.
func (e *ElGamalAdapter) Decrypt(ciphertext []byte) (*big.Int, error) {
	if e.privateKey == nil {
		return nil, fmt.Errorf("private key not set")
	}

	var ct ElGamalCiphertext
	if err := json.Unmarshal(ciphertext, &ct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ciphertext: %v", err)
	}

	c1X, c1Y := elliptic.Unmarshal(e.curve, ct.C1)
	if c1X == nil {
		return nil, fmt.Errorf("invalid C1 component")
	}

	// Shared secret s = C1^privateKey, inverted for subtraction
	sX, sY := e.curve.ScalarMult(c1X, c1Y, e.privateKey.Bytes())
	sY.Neg(sY)
	sY.Mod(sY, e.curve.Params().P)

	c2X, c2Y := elliptic.Unmarshal(e.curve, ct.C2)
	if c2X == nil {
		return nil, fmt.Errorf("invalid C2 component")
	}

	// Recover message point M = C2 - s
	msgX, msgY := e.curve.Add(c2X, c2Y, sX, sY)

	return e.solveDiscreteLog(msgX, msgY)
}

// Add performs homomorphic addition of two ciphertexts.
func (e *ElGamalAdapter) Add(ciphertext1, ciphertext2 []byte) ([]byte, error) {
	var ct1, ct2 ElGamalCiphertext
	if err := json.Unmarshal(ciphertext1, &ct1); err != nil {
		return nil, fmt.Errorf("failed to unmarshal first ciphertext: %v", err)
	}
	if err := json.Unmarshal(ciphertext2, &ct2); err != nil {
		return nil, fmt.Errorf("failed to unmarshal second ciphertext: %v", err)
	}

	c1X1, c1Y1 := elliptic.Unmarshal(e.curve, ct1.C1)
	c1X2, c1Y2 := elliptic.Unmarshal(e.curve, ct2.C1)
	if c1X1 == nil || c1X2 == nil {
		return nil, fmt.Errorf("invalid C1 component")
	}
	resC1X, resC1Y := e.curve.Add(c1X1, c1Y1, c1X2, c1Y2)

	c2X1, c2Y1 := elliptic.Unmarshal(e.curve, ct1.C2)
	c2X2, c2Y2 := elliptic.Unmarshal(e.curve, ct2.C2)
	if c2X1 == nil || c2X2 == nil {
		return nil, fmt.Errorf("invalid C2 component")
	}
	resC2X, resC2Y := e.curve.Add(c2X1, c2Y1, c2X2, c2Y2)

	result := ElGamalCiphertext{
		C1: elliptic.Marshal(e.curve, resC1X, resC1Y),
		C2: elliptic.Marshal(e.curve, resC2X, resC2Y),
	}

	return json.Marshal(result)
}

// CiphertextSize returns the size in bytes of a ciphertext for a given plaintext.
func (e *ElGamalAdapter) CiphertextSize(plaintext *big.Int) int {
	// Two curve points plus JSON overhead
	pointSize := (e.keySize/8 + 1) * 2
	return 2*pointSize + 64
}

// EstimatedSecurityBits returns an estimate of the security level in bits.
func (e *ElGamalAdapter) EstimatedSecurityBits() int {
	return e.keySize / 2
}

// mapValueToPoint encodes a count as value*G. Zero maps to the identity.
func (e *ElGamalAdapter) mapValueToPoint(value *big.Int) (*big.Int, *big.Int) {
	if value.Sign() == 0 {
		return new(big.Int), new(big.Int)
	}
	return e.curve.ScalarBaseMult(value.Bytes())
}

// solveDiscreteLog walks multiples of the generator until it matches
// the message point. Bounded by maxTally.
func (e *ElGamalAdapter) solveDiscreteLog(pointX, pointY *big.Int) (*big.Int, error) {
	if pointX.Sign() == 0 && pointY.Sign() == 0 {
		return new(big.Int), nil
	}

	baseX, baseY := e.curve.ScalarBaseMult(big.NewInt(1).Bytes())
	testX, testY := new(big.Int).Set(baseX), new(big.Int).Set(baseY)

	for count := 1; count <= e.maxTally; count++ {
		if pointX.Cmp(testX) == 0 && pointY.Cmp(testY) == 0 {
			return big.NewInt(int64(count)), nil
		}
		testX, testY = e.curve.Add(testX, testY, baseX, baseY)
	}

	return nil, fmt.Errorf("tally exceeds maximum searchable value")
}
