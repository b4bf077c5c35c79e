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
	"github.com/0xsoniclabs/spentset/crypto/field"
)

// VerifierKey is the projection of a Setup needed to check openings: the G1
// generator and the G2 elements [1]_2 and [τ]_2. It is small enough to be
// embedded into resource constrained verifiers.
type VerifierKey struct {
	G1 field.Point
	G2 [2]field.G2Point
}

// CheckOpening tests the KZG opening equation
//
//	e(proof, [τ]_2 - z·[1]_2) == e(c - [y]_1, [1]_2)
//
// using a single multi-pairing. It returns true if c commits to a polynomial
// evaluating to y at z.
func (vk VerifierKey) CheckOpening(c Commitment, z, y field.Scalar, proof Commitment) (bool, error) {
	shiftedTau := vk.G2[1].Sub(vk.G2[0].ScalarMul(z))
	lhs := c.point.Sub(vk.G1.ScalarMul(y))
	return field.PairingCheck(
		[]field.Point{proof.point, lhs.Neg()},
		[]field.G2Point{shiftedTau, vk.G2[0]},
	)
}
