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
	"github.com/0xsoniclabs/spentset/crypto/field"
)

// Polynomial is a polynomial over the scalar field in coefficient form, lowest
// degree first. A nil or empty polynomial is the zero polynomial.
type Polynomial []field.Scalar

// Degree returns the degree of the polynomial, ignoring leading zero
// coefficients. The zero polynomial has degree -1.
func (p Polynomial) Degree() int {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].IsZero() {
			return i
		}
	}
	return -1
}

// IsZero returns true if all coefficients are zero.
func (p Polynomial) IsZero() bool {
	return p.Degree() < 0
}

// Evaluate computes p(x) using Horner's rule.
func (p Polynomial) Evaluate(x field.Scalar) field.Scalar {
	var res field.Scalar
	for i := len(p) - 1; i >= 0; i-- {
		res = res.Mul(x).Add(p[i])
	}
	return res
}

// Add returns p + q.
func (p Polynomial) Add(q Polynomial) Polynomial {
	res := make(Polynomial, max(len(p), len(q)))
	copy(res, p)
	for i, c := range q {
		res[i] = res[i].Add(c)
	}
	return res
}

// Sub returns p - q.
func (p Polynomial) Sub(q Polynomial) Polynomial {
	res := make(Polynomial, max(len(p), len(q)))
	copy(res, p)
	for i, c := range q {
		res[i] = res[i].Sub(c)
	}
	return res
}

// Scale returns factor * p.
func (p Polynomial) Scale(factor field.Scalar) Polynomial {
	res := make(Polynomial, len(p))
	for i, c := range p {
		res[i] = c.Mul(factor)
	}
	return res
}

// AddScaled computes p += factor * q in place, growing p if needed.
func (p *Polynomial) AddScaled(factor field.Scalar, q Polynomial) {
	if len(q) > len(*p) {
		grown := make(Polynomial, len(q))
		copy(grown, *p)
		*p = grown
	}
	for i, c := range q {
		(*p)[i] = (*p)[i].Add(c.Mul(factor))
	}
}

// DivideByLinear computes the quotient q(X) = (p(X) - p(z)) / (X - z) and the
// evaluation p(z). The division is exact since p(z) is subtracted first.
func (p Polynomial) DivideByLinear(z field.Scalar) (Polynomial, field.Scalar) {
	if len(p) == 0 {
		return nil, field.Scalar{}
	}
	// Synthetic division: the running value after processing coefficient i
	// is the quotient coefficient of degree i-1, the final value is p(z).
	quotient := make(Polynomial, len(p)-1)
	var carry field.Scalar
	for i := len(p) - 1; i >= 1; i-- {
		carry = carry.Mul(z).Add(p[i])
		quotient[i-1] = carry
	}
	value := carry.Mul(z).Add(p[0])
	return quotient, value
}

// Equal compares two polynomials, ignoring leading zero coefficients.
func (p Polynomial) Equal(q Polynomial) bool {
	d := p.Degree()
	if d != q.Degree() {
		return false
	}
	for i := 0; i <= d; i++ {
		if !p[i].Equal(q[i]) {
			return false
		}
	}
	return true
}
