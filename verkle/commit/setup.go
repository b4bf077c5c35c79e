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
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/poly"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	ptau "github.com/mdehoog/gnark-ptau"
)

// MaxWidth is the largest supported node width. Path indices are encoded in a
// single byte.
const MaxWidth = 256

var (
	ErrInvalidWidth       = errors.New("node width must be a power of two in [2, 256]")
	ErrSetupTooSmall      = errors.New("trusted setup has too few powers for the node width")
	ErrPolynomialTooLarge = errors.New("polynomial degree exceeds the trusted setup")
)

// CheckWidth verifies that the given node width is supported.
func CheckWidth(width int) error {
	if width < 2 || width > MaxWidth || bits.OnesCount(uint(width)) != 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidWidth, width)
	}
	return nil
}

// Setup is the structured reference string of the KZG commitment scheme
// restricted to polynomials of degree <= width. It holds the powers
// [τ^0..τ^width]_1 and {[1]_2, [τ]_2} as well as the Lagrange-basis points
// [L_i(τ)]_1 of the node domain {0, ..., width}.
//
// A Setup is immutable after construction and intended to be loaded once at
// startup and shared by all components of a process.
type Setup struct {
	width    int
	srs      kzg.SRS
	domain   *poly.Domain
	lagrange []field.Point
}

// NewInsecureSetup generates a setup from a trapdoor sampled from the given
// source of randomness. The trapdoor is discarded, but it has been in memory,
// so this setup must only be used in tests and local experiments.
func NewInsecureSetup(width int, rand io.Reader) (*Setup, error) {
	if err := CheckWidth(width); err != nil {
		return nil, err
	}
	tau, err := field.RandomScalar(rand)
	if err != nil {
		return nil, err
	}
	srs, err := kzg.NewSRS(uint64(width+1), tau.BigInt())
	if err != nil {
		return nil, fmt.Errorf("failed to generate setup: %w", err)
	}
	return newSetup(srs, width)
}

// LoadPowersOfTau loads the setup from a .ptau file produced by a trusted
// powers-of-tau ceremony (snarkjs format).
func LoadPowersOfTau(in io.Reader, width int) (*Setup, error) {
	if err := CheckWidth(width); err != nil {
		return nil, err
	}
	srs, err := ptau.ToSRS(in)
	if err != nil {
		return nil, fmt.Errorf("failed to parse powers of tau: %w", err)
	}
	return newSetup(srs, width)
}

// ReadSetup reads a setup previously written by Setup.WriteTo. The width is
// derived from the number of G1 powers.
func ReadSetup(in io.Reader) (*Setup, error) {
	var srs kzg.SRS
	if _, err := srs.ReadFrom(in); err != nil {
		return nil, fmt.Errorf("failed to read setup: %w", err)
	}
	width := len(srs.Pk.G1) - 1
	if err := CheckWidth(width); err != nil {
		return nil, err
	}
	return newSetup(&srs, width)
}

// WriteTo writes the setup using the gnark-crypto binary encoding.
func (s *Setup) WriteTo(out io.Writer) (int64, error) {
	return s.srs.WriteTo(out)
}

func newSetup(srs *kzg.SRS, width int) (*Setup, error) {
	if len(srs.Pk.G1) < width+1 {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrSetupTooSmall, width+1, len(srs.Pk.G1))
	}
	var res Setup
	res.width = width
	res.srs.Pk.G1 = srs.Pk.G1[:width+1 : width+1]
	res.srs.Vk.G1 = srs.Pk.G1[0]
	res.srs.Vk.G2 = srs.Vk.G2
	res.srs.Vk.Lines[0] = bn254.PrecomputeLines(res.srs.Vk.G2[0])
	res.srs.Vk.Lines[1] = bn254.PrecomputeLines(res.srs.Vk.G2[1])

	domain, err := poly.NewDomain(width + 1)
	if err != nil {
		return nil, err
	}
	res.domain = domain

	// [L_i(τ)]_1 = Σ_k L_i[k]·[τ^k]_1
	res.lagrange = make([]field.Point, width+1)
	for i := range res.lagrange {
		point, err := res.Commit(domain.LagrangeBasis(i))
		if err != nil {
			return nil, err
		}
		res.lagrange[i] = point.point
	}
	return &res, nil
}

// Width returns the node width served by this setup.
func (s *Setup) Width() int {
	return s.width
}

// Domain returns the evaluation domain {0, ..., width} of node polynomials.
func (s *Setup) Domain() *poly.Domain {
	return s.domain
}

// VerifierKey returns the minimal information needed to check openings.
func (s *Setup) VerifierKey() VerifierKey {
	return VerifierKey{
		G1: field.PointFromAffine(s.srs.Vk.G1),
		G2: [2]field.G2Point{
			field.G2PointFromAffine(s.srs.Vk.G2[0]),
			field.G2PointFromAffine(s.srs.Vk.G2[1]),
		},
	}
}

// Commit computes Σ coeff_i·[τ^i]_1, the evaluation of the polynomial at the
// secret trapdoor in the exponent.
func (s *Setup) Commit(p poly.Polynomial) (Commitment, error) {
	if len(p) > len(s.srs.Pk.G1) {
		if p.Degree() >= len(s.srs.Pk.G1) {
			return Commitment{}, fmt.Errorf("%w: degree %d, setup supports %d", ErrPolynomialTooLarge, p.Degree(), len(s.srs.Pk.G1)-1)
		}
		p = p[:len(s.srs.Pk.G1)]
	}
	if len(p) == 0 {
		return Identity(), nil
	}
	digest, err := kzg.Commit(field.Elements(p), s.srs.Pk)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{point: field.PointFromAffine(digest)}, nil
}

// Open commits to the quotient q(X) = (p(X) - p(z)) / (X - z). The resulting
// commitment proves that p evaluates to the returned value at z.
func (s *Setup) Open(p poly.Polynomial, z field.Scalar) (Commitment, field.Scalar, error) {
	quotient, value := p.DivideByLinear(z)
	proof, err := s.Commit(quotient)
	if err != nil {
		return Commitment{}, field.Scalar{}, err
	}
	return proof, value, nil
}

// BatchOpen forms Σ weights_i·polys_i and opens the combination at z.
func (s *Setup) BatchOpen(polys []poly.Polynomial, weights []field.Scalar, z field.Scalar) (Commitment, field.Scalar, error) {
	if len(polys) != len(weights) {
		return Commitment{}, field.Scalar{}, fmt.Errorf("length mismatch: %d polynomials, %d weights", len(polys), len(weights))
	}
	var combined poly.Polynomial
	for i, p := range polys {
		combined.AddScaled(weights[i], p)
	}
	return s.Open(combined, z)
}

// CommitValues commits to the polynomial interpolating the given values over
// the node domain, using the precomputed Lagrange-basis points. The result is
// identical to committing to the interpolated polynomial.
func (s *Setup) CommitValues(values []field.Scalar) (Commitment, error) {
	if len(values) > len(s.lagrange) {
		return Commitment{}, fmt.Errorf("%w: %d values, domain size %d", poly.ErrTooManyValues, len(values), len(s.lagrange))
	}
	points := make([]field.Point, 0, len(values))
	scalars := make([]field.Scalar, 0, len(values))
	for i, v := range values {
		if v.IsZero() {
			continue
		}
		points = append(points, s.lagrange[i])
		scalars = append(scalars, v)
	}
	point, err := field.MultiExp(points, scalars)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{point: point}, nil
}

// UpdateSlot returns the commitment obtained by changing the value at the
// given slot of the committed vector from old to new.
func (s *Setup) UpdateSlot(c Commitment, slot int, old, new field.Scalar) Commitment {
	delta := new.Sub(old)
	if delta.IsZero() {
		return c
	}
	return Commitment{point: c.point.Add(s.lagrange[slot].ScalarMul(delta))}
}
