// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package proof defines non-membership proofs for the spent-key tree and the
// stateless verifier checking them against a published root.
//
// A proof lists the commitments of all nodes along the path of the queried
// key, from the root down to the node at full depth, together with the
// terminal stored in the final node, if any. A single KZG multiproof opens
// every node polynomial at the position of the next node on the path and the
// final node at its terminal slot. Verification costs one multi-pairing
// independent of the size of the tree.
package proof

import (
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
)

// Terminal is the entry stored at the end of a path.
type Terminal struct {
	Key   common.Key
	Value common.Value
}

// Multiproof is a KZG opening of several polynomials at distinct points.
type Multiproof struct {
	// Proof is the commitment to the quotient of the final single-point
	// opening.
	Proof commit.Commitment
	// Quotient is the commitment to the aggregated quotient polynomial
	// g(X) = Σ r^i (f_i(X) - y_i) / (X - z_i).
	Quotient commit.Commitment
	// EvaluationPoint is the Fiat-Shamir point t at which the aggregate was
	// opened. Verifiers recompute it and reject proofs carrying another one.
	EvaluationPoint field.Scalar
}

// NonMembershipProof proves the presence or absence of a key in a tree with a
// given root. It is immutable once produced.
type NonMembershipProof struct {
	PathCommitments []commit.Commitment // < root first, depth+1 entries
	Multiproof      Multiproof
	Terminal        *Terminal // < nil if the final node has no terminal
	QueriedKey      common.Key
}

// Status is the outcome of a verification.
type Status byte

const (
	Invalid Status = iota
	Absent
	Present
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "Absent"
	case Present:
		return "Present"
	case Invalid:
		return "Invalid"
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

// Reason qualifies an Invalid verification result.
type Reason byte

const (
	NoReason Reason = iota
	// RootMismatch indicates a proof for a different root, e.g. for a root
	// that has just been superseded.
	RootMismatch
	// MalformedProof indicates structural defects: wrong lengths or an
	// undecodable encoding.
	MalformedProof
	// BadOpening indicates a failed pairing check.
	BadOpening
	// KeyMismatch indicates a proof created for another key.
	KeyMismatch
)

func (r Reason) String() string {
	switch r {
	case NoReason:
		return "None"
	case RootMismatch:
		return "RootMismatch"
	case MalformedProof:
		return "MalformedProof"
	case BadOpening:
		return "BadOpening"
	case KeyMismatch:
		return "KeyMismatch"
	}
	return fmt.Sprintf("Reason(%d)", byte(r))
}

// Result is the outcome of verifying a proof. The Reason is only set for
// Invalid results.
type Result struct {
	Status Status
	Reason Reason
}

func invalid(reason Reason) Result {
	return Result{Status: Invalid, Reason: reason}
}

// IsValid returns true for Absent and Present results.
func (r Result) IsValid() bool {
	return r.Status != Invalid
}

func (r Result) String() string {
	if r.Status == Invalid {
		return fmt.Sprintf("Invalid(%v)", r.Reason)
	}
	return r.Status.String()
}

// Root returns the root commitment the proof is anchored at, or the identity
// if the proof has no commitments at all.
func (p *NonMembershipProof) Root() commit.Commitment {
	if len(p.PathCommitments) == 0 {
		return commit.Identity()
	}
	return p.PathCommitments[0]
}
