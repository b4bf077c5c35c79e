// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package field provides the scalar field and group arithmetic of the BN254
// pairing-friendly curve used by the KZG commitments of the spent-key tree.
//
// All types have value semantics. Operations return new values instead of
// mutating the receiver, which makes them safe to share between goroutines.
//
// Scalar field arithmetic is implemented by gnark-crypto using Montgomery
// multiplication without secret-dependent branches. Multi-scalar
// multiplications are variable-time and must only be applied to public data.
package field

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"
)

// ScalarSize is the size of the canonical encoding of a scalar.
const ScalarSize = fr.Bytes

var (
	ErrDivisionByZero     = errors.New("division by zero")
	ErrNonCanonicalScalar = errors.New("non-canonical scalar encoding")
)

// Scalar is an element of the scalar field of BN254. The zero value is zero.
type Scalar struct {
	e fr.Element
}

// NewScalar creates a scalar from a small integer.
func NewScalar(value uint64) Scalar {
	var res Scalar
	res.e.SetUint64(value)
	return res
}

// ScalarFromElement wraps a gnark-crypto field element.
func ScalarFromElement(e fr.Element) Scalar {
	return Scalar{e: e}
}

// ScalarFromBytes decodes a canonical 32-byte big-endian encoding. Values
// greater or equal to the field modulus are rejected.
func ScalarFromBytes(data []byte) (Scalar, error) {
	var res Scalar
	if len(data) != ScalarSize {
		return res, fmt.Errorf("%w: invalid length %d", ErrNonCanonicalScalar, len(data))
	}
	if err := res.e.SetBytesCanonical(data); err != nil {
		return res, fmt.Errorf("%w: %v", ErrNonCanonicalScalar, err)
	}
	return res, nil
}

// ScalarFromBytesReduce interprets data as a big-endian integer of arbitrary
// length and reduces it modulo the field order.
func ScalarFromBytesReduce(data []byte) Scalar {
	var res Scalar
	res.e.SetBytes(data)
	return res
}

// HashToScalar maps the given data into the field by hashing the domain tag
// followed by all data items with keccak256 and reducing the digest.
func HashToScalar(domain string, data ...[]byte) Scalar {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(domain))
	for _, d := range data {
		hasher.Write(d)
	}
	return ScalarFromBytesReduce(hasher.Sum(nil))
}

// RandomScalar samples a scalar from the given source of randomness. 64 bytes
// are consumed and reduced, which keeps the modulo bias negligible.
func RandomScalar(rand io.Reader) (Scalar, error) {
	var buffer [64]byte
	if _, err := io.ReadFull(rand, buffer[:]); err != nil {
		return Scalar{}, fmt.Errorf("failed to read randomness: %w", err)
	}
	return ScalarFromBytesReduce(buffer[:]), nil
}

func (a Scalar) Add(b Scalar) Scalar {
	var res Scalar
	res.e.Add(&a.e, &b.e)
	return res
}

func (a Scalar) Sub(b Scalar) Scalar {
	var res Scalar
	res.e.Sub(&a.e, &b.e)
	return res
}

func (a Scalar) Mul(b Scalar) Scalar {
	var res Scalar
	res.e.Mul(&a.e, &b.e)
	return res
}

func (a Scalar) Neg() Scalar {
	var res Scalar
	res.e.Neg(&a.e)
	return res
}

// Inverse computes the multiplicative inverse. Zero has no inverse.
func (a Scalar) Inverse() (Scalar, error) {
	if a.e.IsZero() {
		return Scalar{}, ErrDivisionByZero
	}
	var res Scalar
	res.e.Inverse(&a.e)
	return res, nil
}

// Div computes a / b.
func (a Scalar) Div(b Scalar) (Scalar, error) {
	inv, err := b.Inverse()
	if err != nil {
		return Scalar{}, err
	}
	return a.Mul(inv), nil
}

// Exp computes a^k.
func (a Scalar) Exp(k uint64) Scalar {
	var res Scalar
	res.e.Exp(a.e, new(big.Int).SetUint64(k))
	return res
}

func (a Scalar) IsZero() bool {
	return a.e.IsZero()
}

func (a Scalar) Equal(b Scalar) bool {
	return a.e.Equal(&b.e)
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (a Scalar) Bytes() [ScalarSize]byte {
	return a.e.Bytes()
}

// BigInt returns the scalar in its regular (non-Montgomery) form.
func (a Scalar) BigInt() *big.Int {
	return a.e.BigInt(new(big.Int))
}

// Element returns the underlying gnark-crypto representation.
func (a Scalar) Element() fr.Element {
	return a.e
}

func (a Scalar) String() string {
	return a.e.String()
}

// Powers returns [1, a, a^2, ..., a^(n-1)].
func Powers(a Scalar, n int) []Scalar {
	res := make([]Scalar, n)
	if n == 0 {
		return res
	}
	res[0] = NewScalar(1)
	for i := 1; i < n; i++ {
		res[i] = res[i-1].Mul(a)
	}
	return res
}

// Elements converts scalars into gnark-crypto field elements.
func Elements(scalars []Scalar) []fr.Element {
	res := make([]fr.Element, len(scalars))
	for i, s := range scalars {
		res[i] = s.e
	}
	return res
}
