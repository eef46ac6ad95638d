package encryption

import "github.com/ethereum/go-ethereum/common/hexutil"

// Ciphertext is an opaque encrypted handle. The ledger never interprets
// its bytes; the only operation defined on it is the homomorphic add
// performed through a Scheme.
type Ciphertext struct {
	data []byte
}

// NewCiphertext wraps raw ciphertext bytes. The input is copied so the
// handle cannot be mutated through the original slice.
func NewCiphertext(raw []byte) Ciphertext {
	data := make([]byte, len(raw))
	copy(data, raw)
	return Ciphertext{data: data}
}

// CiphertextFromHex decodes a 0x-prefixed hex handle.
func CiphertextFromHex(s string) (Ciphertext, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{data: raw}, nil
}

// Bytes returns a copy of the underlying handle bytes.
func (c Ciphertext) Bytes() []byte {
	data := make([]byte, len(c.data))
	copy(data, c.data)
	return data
}

// Hex returns the 0x-prefixed hex encoding of the handle.
func (c Ciphertext) Hex() string {
	return hexutil.Encode(c.data)
}

// IsEmpty reports whether the handle holds no data.
func (c Ciphertext) IsEmpty() bool {
	return len(c.data) == 0
}
