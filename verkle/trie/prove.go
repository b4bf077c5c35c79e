// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/poly"
	"github.com/0xsoniclabs/spentset/verkle/proof"
)

// ProveAbsence creates a proof showing whether the given key is contained in
// this version of the trie. If the trie is found to be inconsistent while
// collecting the proof, ErrCorruptedTree is returned and no proof is issued.
// Every issued proof has been verified against the root of this snapshot.
func (s *Snapshot) ProveAbsence(key common.Key) (*proof.NonMembershipProof, error) {
	setup := s.owner.setup
	params := s.owner.params
	path := proof.ComputePath(params, key)

	commitments := make([]commit.Commitment, params.Depth+1)
	polys := make([]poly.Polynomial, params.Depth+1)
	var terminal *proof.Terminal

	var cur node = s.root
	for level := 0; cur != nil; level++ {
		switch n := cur.(type) {
		case *inner:
			if n.level != level || level >= params.Depth || !n.isCommitted() {
				return nil, fmt.Errorf("%w: invalid inner node at level %d", ErrCorruptedTree, level)
			}
			values, err := n.values(setup, params)
			if err != nil {
				return nil, err
			}
			p, err := setup.NodePolynomial(values)
			if err != nil {
				return nil, err
			}
			commitments[level] = n.commitment
			polys[level] = p
			cur = n.child(path[level])

		case *leaf:
			if n.level != level || !n.committed || !bytes.Equal(n.path[:level], path[:level]) {
				return nil, fmt.Errorf("%w: invalid leaf at level %d", ErrCorruptedTree, level)
			}
			chain := n.chain(setup, params)
			if !chain[0].Equal(n.commitment) {
				return nil, fmt.Errorf("%w: leaf commitment mismatch at level %d", ErrCorruptedTree, level)
			}
			for l := level; l <= params.Depth; l++ {
				values := make([]field.Scalar, params.Width+1)
				if l == params.Depth {
					values[params.Width] = commit.TerminalValue(n.key, n.value)
					terminal = &proof.Terminal{Key: n.key, Value: n.value}
				} else {
					values[n.path[l]] = chain[l-level+1].ToValue()
				}
				p, err := setup.NodePolynomial(values)
				if err != nil {
					return nil, err
				}
				commitments[l] = chain[l-level]
				polys[l] = p
				if l < params.Depth && n.path[l] != path[l] {
					break // the rest of the queried path is empty
				}
			}
			cur = nil

		default:
			return nil, fmt.Errorf("%w: unsupported node type %T", ErrCorruptedTree, n)
		}
	}

	zs, ys := proof.Openings(params, path, commitments, terminal)
	multiproof, err := proof.CreateMultiproof(setup, params, key, commitments, polys, zs, ys)
	if errors.Is(err, proof.ErrOpeningMismatch) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedTree, err)
	}
	if err != nil {
		return nil, err
	}
	res := &proof.NonMembershipProof{
		PathCommitments: commitments,
		Multiproof:      multiproof,
		Terminal:        terminal,
		QueriedKey:      key,
	}

	if result := proof.Verify(s.owner.vk, params, res, s.Root(), key); !result.IsValid() {
		return nil, fmt.Errorf("%w: produced proof is %v", ErrCorruptedTree, result)
	}
	return res, nil
}

// values returns the value vector committed to by this node. It fails if a
// cached child value does not match the child's commitment.
func (i *inner) values(setup *commit.Setup, params proof.Params) ([]field.Scalar, error) {
	values := make([]field.Scalar, params.Width+1)
	for _, s := range i.slots {
		if !i.used.get(s.index) || !s.child.isCommitted() {
			return nil, fmt.Errorf("%w: invalid child %d at level %d", ErrCorruptedTree, s.index, i.level)
		}
		c, err := s.child.commit(setup, params)
		if err != nil {
			return nil, err
		}
		if !c.ToValue().Equal(s.value) {
			return nil, fmt.Errorf("%w: stale child value %d at level %d", ErrCorruptedTree, s.index, i.level)
		}
		values[s.index] = s.value
	}
	return values, nil
}
