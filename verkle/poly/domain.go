// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package poly

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/crypto/field"
)

var ErrTooManyValues = errors.New("more values than domain points")

// Domain is the evaluation domain {0, 1, ..., size-1} used to interpolate the
// value vectors of tree nodes. A Domain is immutable after construction and
// may be shared between goroutines.
type Domain struct {
	size      int
	vanishing Polynomial     // Z(X) = Π (X - j)
	weights   []field.Scalar // barycentric weights 1 / Π_{j≠i} (i - j)
}

// NewDomain creates the domain {0, ..., size-1}.
func NewDomain(size int) (*Domain, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid domain size %d", size)
	}

	vanishing := Polynomial{field.NewScalar(1)}
	for j := 0; j < size; j++ {
		// Multiply by (X - j).
		next := make(Polynomial, len(vanishing)+1)
		negJ := field.NewScalar(uint64(j)).Neg()
		for k, c := range vanishing {
			next[k+1] = next[k+1].Add(c)
			next[k] = next[k].Add(c.Mul(negJ))
		}
		vanishing = next
	}

	// Π_{j≠i} (i - j) = i! · (-1)^(size-1-i) · (size-1-i)!
	factorials := make([]field.Scalar, size)
	factorials[0] = field.NewScalar(1)
	for k := 1; k < size; k++ {
		factorials[k] = factorials[k-1].Mul(field.NewScalar(uint64(k)))
	}
	weights := make([]field.Scalar, size)
	for i := 0; i < size; i++ {
		denominator := factorials[i].Mul(factorials[size-1-i])
		if (size-1-i)%2 == 1 {
			denominator = denominator.Neg()
		}
		w, err := denominator.Inverse()
		if err != nil {
			return nil, fmt.Errorf("domain of size %d exceeds the field characteristic: %w", size, err)
		}
		weights[i] = w
	}

	return &Domain{
		size:      size,
		vanishing: vanishing,
		weights:   weights,
	}, nil
}

// Size returns the number of points in the domain.
func (d *Domain) Size() int {
	return d.size
}

// LagrangeBasis returns the polynomial L_i with L_i(i) = 1 and L_i(j) = 0 for
// all other domain points j.
func (d *Domain) LagrangeBasis(i int) Polynomial {
	quotient, _ := d.vanishing.DivideByLinear(field.NewScalar(uint64(i)))
	return quotient.Scale(d.weights[i])
}

// Interpolate computes the unique polynomial of degree < size taking the
// given values on the first len(values) domain points and zero on the rest.
// Zero values are skipped, so sparse vectors are cheap to interpolate.
func (d *Domain) Interpolate(values []field.Scalar) (Polynomial, error) {
	if len(values) > d.size {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyValues, len(values), d.size)
	}
	res := make(Polynomial, d.size)
	for i, v := range values {
		if v.IsZero() {
			continue
		}
		quotient, _ := d.vanishing.DivideByLinear(field.NewScalar(uint64(i)))
		res.AddScaled(v.Mul(d.weights[i]), quotient)
	}
	return res, nil
}
