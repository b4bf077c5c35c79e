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
	"fmt"

	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/poly"
)

// NodeValues builds the value vector of a tree node. Slot i < width holds the
// value of the i-th child commitment, slot width holds the terminal value.
// Missing children are represented by the identity commitment and a missing
// terminal by zero.
func (s *Setup) NodeValues(children []Commitment, terminal field.Scalar) ([]field.Scalar, error) {
	if len(children) > s.width {
		return nil, fmt.Errorf("too many children: %d > %d", len(children), s.width)
	}
	values := make([]field.Scalar, s.width+1)
	for i, child := range children {
		values[i] = child.ToValue()
	}
	values[s.width] = terminal
	return values, nil
}

// NodePolynomial interpolates a node's value vector over {0, ..., width}.
func (s *Setup) NodePolynomial(values []field.Scalar) (poly.Polynomial, error) {
	return s.domain.Interpolate(values)
}

// NodeCommitment computes the commitment of a node with the given children
// and terminal value by interpolating its value vector and committing to the
// resulting polynomial.
func (s *Setup) NodeCommitment(children []Commitment, terminal field.Scalar) (Commitment, error) {
	values, err := s.NodeValues(children, terminal)
	if err != nil {
		return Commitment{}, err
	}
	p, err := s.NodePolynomial(values)
	if err != nil {
		return Commitment{}, err
	}
	return s.Commit(p)
}
