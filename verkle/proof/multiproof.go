// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proof

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/poly"
)

// The multiproof follows the scheme described in
// https://dankradfeist.de/ethereum/2021/06/18/pcs-multiproofs.html
//
// Given commitments C_i to polynomials f_i claimed to satisfy f_i(z_i) = y_i:
//
//	r = H(claims)
//	g(X) = Σ r^i (f_i(X) - y_i) / (X - z_i),  D = [g(τ)]_1
//	t = H(r, D)
//	h(X) = Σ r^i f_i(X) / (t - z_i)
//	π = [(h(τ) - g(τ) - y) / (τ - t)]_1  with  y = h(t) - g(t) = Σ r^i y_i / (t - z_i)
//
// The verifier computes E = Σ r^i/(t - z_i)·C_i and y and checks the single
// opening of E - D at t with one pairing equation.

var ErrOpeningMismatch = errors.New("polynomial does not open to the claimed value")

// Openings returns the points and claimed values opened by a proof: node i
// opens at the path index of level i to the value of the commitment of node
// i+1, the last node opens at the terminal slot to the terminal value.
func Openings(params Params, path []byte, commitments []commit.Commitment, terminal *Terminal) ([]field.Scalar, []field.Scalar) {
	zs := make([]field.Scalar, params.Depth+1)
	ys := make([]field.Scalar, params.Depth+1)
	for i := 0; i < params.Depth; i++ {
		zs[i] = field.NewScalar(uint64(path[i]))
		ys[i] = commitments[i+1].ToValue()
	}
	zs[params.Depth] = field.NewScalar(uint64(params.Width))
	if terminal != nil {
		ys[params.Depth] = commit.TerminalValue(terminal.Key, terminal.Value)
	}
	return zs, ys
}

// CreateMultiproof opens the given polynomials at the given points. The i-th
// polynomial must be the one committed to by commitments[i] and evaluate to
// ys[i] at zs[i].
func CreateMultiproof(
	setup *commit.Setup,
	params Params,
	key common.Key,
	commitments []commit.Commitment,
	polys []poly.Polynomial,
	zs []field.Scalar,
	ys []field.Scalar,
) (Multiproof, error) {
	n := len(commitments)
	if len(polys) != n || len(zs) != n || len(ys) != n {
		return Multiproof{}, fmt.Errorf("inconsistent number of openings")
	}

	transcript := newTranscript()
	r, err := transcript.challengeR(params, key, commitments, zs, ys)
	if err != nil {
		return Multiproof{}, err
	}
	powers := field.Powers(r, n)

	var g poly.Polynomial
	for i, f := range polys {
		quotient, value := f.DivideByLinear(zs[i])
		if !value.Equal(ys[i]) {
			return Multiproof{}, fmt.Errorf("%w at opening %d", ErrOpeningMismatch, i)
		}
		g.AddScaled(powers[i], quotient)
	}
	quotient, err := setup.Commit(g)
	if err != nil {
		return Multiproof{}, err
	}

	t, err := transcript.challengeT(quotient)
	if err != nil {
		return Multiproof{}, err
	}
	weights, err := aggregationWeights(powers, zs, t)
	if err != nil {
		return Multiproof{}, err
	}

	// π opens h - g at t.
	allPolys := append(append(make([]poly.Polynomial, 0, n+1), polys...), g)
	allWeights := append(weights, field.NewScalar(1).Neg())
	proof, _, err := setup.BatchOpen(allPolys, allWeights, t)
	if err != nil {
		return Multiproof{}, err
	}

	return Multiproof{
		Proof:           proof,
		Quotient:        quotient,
		EvaluationPoint: t,
	}, nil
}

// checkMultiproof verifies the multiproof for the given claims. It never uses
// the evaluation point of the proof other than comparing it to the recomputed
// one.
func checkMultiproof(
	vk commit.VerifierKey,
	params Params,
	key common.Key,
	commitments []commit.Commitment,
	zs []field.Scalar,
	ys []field.Scalar,
	proof Multiproof,
) (bool, error) {
	transcript := newTranscript()
	r, err := transcript.challengeR(params, key, commitments, zs, ys)
	if err != nil {
		return false, err
	}
	t, err := transcript.challengeT(proof.Quotient)
	if err != nil {
		return false, err
	}
	if !t.Equal(proof.EvaluationPoint) {
		return false, nil
	}

	weights, err := aggregationWeights(field.Powers(r, len(commitments)), zs, t)
	if err != nil {
		// t coincides with an opening point, which happens with negligible
		// probability only.
		return false, nil
	}

	points := make([]field.Point, len(commitments))
	var y field.Scalar
	for i, c := range commitments {
		points[i] = c.Point()
		y = y.Add(weights[i].Mul(ys[i]))
	}
	aggregated, err := field.MultiExp(points, weights)
	if err != nil {
		return false, err
	}
	combined := commit.FromPoint(aggregated).Sub(proof.Quotient)
	return vk.CheckOpening(combined, t, y, proof.Proof)
}

// aggregationWeights computes r^i / (t - z_i).
func aggregationWeights(powers []field.Scalar, zs []field.Scalar, t field.Scalar) ([]field.Scalar, error) {
	weights := make([]field.Scalar, len(zs))
	for i, z := range zs {
		w, err := powers[i].Div(t.Sub(z))
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}
	return weights, nil
}
