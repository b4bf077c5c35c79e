// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package commit

import (
	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
)

// Commitment is a KZG commitment to a polynomial. It is a point in the G1
// group of BN254. The zero value is the identity commitment, which is the
// commitment to the zero polynomial and, thus, of an empty tree node.
//
// For background on KZG commitments, see:
// https://dankradfeist.de/ethereum/2020/06/16/kate-polynomial-commitments.html
type Commitment struct {
	point field.Point
}

// Identity returns the commitment to the zero polynomial.
func Identity() Commitment {
	return Commitment{}
}

// FromPoint wraps a group element as a commitment.
func FromPoint(p field.Point) Commitment {
	return Commitment{point: p}
}

// Decompress decodes a compressed commitment. Only canonical encodings of
// points in the prime order subgroup are accepted.
func Decompress(data []byte) (Commitment, error) {
	p, err := field.PointFromBytes(data)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{point: p}, nil
}

// Point returns the group element of this commitment.
func (c Commitment) Point() field.Point {
	return c.point
}

func (c Commitment) IsIdentity() bool {
	return c.point.IsIdentity()
}

// Equal checks if two commitments are equal.
func (c Commitment) Equal(other Commitment) bool {
	return c.point.Equal(other.point)
}

// Compress returns the compressed representation of the commitment. The root
// commitment in this form is what the registry publishes.
func (c Commitment) Compress() [field.PointSize]byte {
	return c.point.Bytes()
}

// Add returns c + other, the commitment of the sum of both polynomials.
func (c Commitment) Add(other Commitment) Commitment {
	return Commitment{point: c.point.Add(other.point)}
}

// Sub returns c - other.
func (c Commitment) Sub(other Commitment) Commitment {
	return Commitment{point: c.point.Sub(other.point)}
}

// Scale returns factor * c.
func (c Commitment) Scale(factor field.Scalar) Commitment {
	return Commitment{point: c.point.ScalarMul(factor)}
}

func (c Commitment) String() string {
	return c.point.String()
}

// ToValue converts the commitment into the scalar stored in its parent node's
// value vector. The identity commitment maps to zero so that empty children
// and absent slots are indistinguishable. All other commitments are hashed.
func (c Commitment) ToValue() field.Scalar {
	if c.point.IsIdentity() {
		return field.Scalar{}
	}
	compressed := c.point.Bytes()
	return field.HashToScalar("spentset/child", compressed[:])
}

// TerminalValue computes the scalar placed in the terminal slot of the node at
// the end of a key's path.
func TerminalValue(key common.Key, value common.Value) field.Scalar {
	return field.HashToScalar("spentset/terminal", key[:], value[:])
}
