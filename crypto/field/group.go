// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package field

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// PointSize is the size of a compressed G1 point.
const PointSize = bn254.SizeOfG1AffineCompressed

var ErrInvalidPoint = errors.New("invalid group element encoding")

// Point is an element of the G1 group of BN254. The zero value is the
// identity element (the point at infinity).
type Point struct {
	p bn254.G1Affine
}

// Identity returns the neutral element of G1.
func Identity() Point {
	return Point{}
}

// Generator returns the canonical generator of G1.
func Generator() Point {
	_, _, g1, _ := bn254.Generators()
	return Point{p: g1}
}

// PointFromAffine wraps a gnark-crypto affine point.
func PointFromAffine(p bn254.G1Affine) Point {
	return Point{p: p}
}

// PointFromBytes decodes a compressed point. Besides being on the curve and in
// the prime order subgroup, the encoding must be canonical: re-encoding the
// decoded point must reproduce the input.
func PointFromBytes(data []byte) (Point, error) {
	if len(data) != PointSize {
		return Point{}, fmt.Errorf("%w: invalid length %d", ErrInvalidPoint, len(data))
	}
	var res Point
	if _, err := res.p.SetBytes(data); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	encoded := res.p.Bytes()
	if !bytes.Equal(encoded[:], data) {
		return Point{}, fmt.Errorf("%w: non-canonical encoding", ErrInvalidPoint)
	}
	return res, nil
}

func (p Point) Add(q Point) Point {
	var res Point
	res.p.Add(&p.p, &q.p)
	return res
}

func (p Point) Sub(q Point) Point {
	var res Point
	res.p.Sub(&p.p, &q.p)
	return res
}

func (p Point) Neg() Point {
	var res Point
	res.p.Neg(&p.p)
	return res
}

// ScalarMul computes [s]p.
func (p Point) ScalarMul(s Scalar) Point {
	var res Point
	res.p.ScalarMultiplication(&p.p, s.BigInt())
	return res
}

func (p Point) IsIdentity() bool {
	return p.p.IsInfinity()
}

func (p Point) Equal(q Point) bool {
	return p.p.Equal(&q.p)
}

// Bytes returns the 32-byte compressed encoding of the point.
func (p Point) Bytes() [PointSize]byte {
	return p.p.Bytes()
}

// Affine returns the underlying gnark-crypto representation.
func (p Point) Affine() bn254.G1Affine {
	return p.p
}

func (p Point) String() string {
	b := p.Bytes()
	return fmt.Sprintf("0x%x", b[:])
}

// MultiExp computes Σ scalars[i]·points[i].
func MultiExp(points []Point, scalars []Scalar) (Point, error) {
	if len(points) != len(scalars) {
		return Point{}, fmt.Errorf("length mismatch: %d points, %d scalars", len(points), len(scalars))
	}
	if len(points) == 0 {
		return Identity(), nil
	}
	affine := make([]bn254.G1Affine, len(points))
	for i, p := range points {
		affine[i] = p.p
	}
	return MultiExpAffine(affine, Elements(scalars))
}

// MultiExpAffine is MultiExp operating on gnark-crypto types directly.
func MultiExpAffine(points []bn254.G1Affine, scalars []fr.Element) (Point, error) {
	var res Point
	if len(points) == 0 {
		return res, nil
	}
	config := ecc.MultiExpConfig{NbTasks: runtime.GOMAXPROCS(0)}
	if _, err := res.p.MultiExp(points, scalars, config); err != nil {
		return Point{}, err
	}
	return res, nil
}

// G2Point is an element of the G2 group of BN254.
type G2Point struct {
	p bn254.G2Affine
}

// G2Generator returns the canonical generator of G2.
func G2Generator() G2Point {
	_, _, _, g2 := bn254.Generators()
	return G2Point{p: g2}
}

// G2PointFromAffine wraps a gnark-crypto affine G2 point.
func G2PointFromAffine(p bn254.G2Affine) G2Point {
	return G2Point{p: p}
}

func (p G2Point) Add(q G2Point) G2Point {
	var res G2Point
	res.p.Add(&p.p, &q.p)
	return res
}

func (p G2Point) Sub(q G2Point) G2Point {
	var res G2Point
	res.p.Sub(&p.p, &q.p)
	return res
}

// ScalarMul computes [s]p.
func (p G2Point) ScalarMul(s Scalar) G2Point {
	var res G2Point
	res.p.ScalarMultiplication(&p.p, s.BigInt())
	return res
}

func (p G2Point) Equal(q G2Point) bool {
	return p.p.Equal(&q.p)
}

func (p G2Point) Affine() bn254.G2Affine {
	return p.p
}

// PairingCheck tests whether Π e(g1[i], g2[i]) == 1.
func PairingCheck(g1 []Point, g2 []G2Point) (bool, error) {
	if len(g1) != len(g2) {
		return false, fmt.Errorf("length mismatch: %d G1 points, %d G2 points", len(g1), len(g2))
	}
	p := make([]bn254.G1Affine, len(g1))
	q := make([]bn254.G2Affine, len(g2))
	for i := range g1 {
		p[i] = g1[i].p
		q[i] = g2[i].p
	}
	return bn254.PairingCheck(p, q)
}
