// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package reference implements a simple reference version of the spent-key
// Verkle tree providing
//   - an executable description of the committed tree structure
//   - a light-weight reference implementation for testing other components
//
// Every commitment is recomputed from scratch, by interpolating the full
// value vector of each node and committing to the resulting polynomial in the
// monomial basis. Optimized implementations must produce identical roots and
// proofs.
//
// WARNING: This package is not intended for production use. It retains all
// data in memory and recomputes the entire tree on every query.
package reference

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/poly"
	"github.com/0xsoniclabs/spentset/verkle/proof"
)

var ErrPathCollision = errors.New("distinct keys share the same path")

// Trie is a map-based reference tree.
type Trie struct {
	setup   *commit.Setup
	params  proof.Params
	entries map[common.Key]common.Value
}

// NewTrie creates an empty reference tree.
func NewTrie(setup *commit.Setup, params proof.Params) (*Trie, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if setup.Width() != params.Width {
		return nil, fmt.Errorf("setup width %d does not match tree width %d", setup.Width(), params.Width)
	}
	return &Trie{
		setup:   setup,
		params:  params,
		entries: map[common.Key]common.Value{},
	}, nil
}

// Set associates the key with the given value.
func (t *Trie) Set(key common.Key, value common.Value) {
	t.entries[key] = value
}

// Get returns the value of the given key, if present.
func (t *Trie) Get(key common.Key) (common.Value, bool) {
	value, found := t.entries[key]
	return value, found
}

// Commit computes the root commitment of the tree.
func (t *Trie) Commit() (commit.Commitment, error) {
	root, err := t.build()
	if err != nil {
		return commit.Commitment{}, err
	}
	return root.commitment, nil
}

// ProveAbsence creates a non-membership proof for the given key.
func (t *Trie) ProveAbsence(key common.Key) (*proof.NonMembershipProof, error) {
	root, err := t.build()
	if err != nil {
		return nil, err
	}
	path := proof.ComputePath(t.params, key)

	commitments := make([]commit.Commitment, t.params.Depth+1)
	polys := make([]poly.Polynomial, t.params.Depth+1)
	var terminal *proof.Terminal
	cur := root
	for level := 0; level <= t.params.Depth; level++ {
		if cur == nil {
			break // the rest of the path is empty
		}
		commitments[level] = cur.commitment
		polys[level] = cur.polynomial
		if level == t.params.Depth {
			terminal = cur.terminal
			break
		}
		cur = cur.children[path[level]]
	}

	zs, ys := proof.Openings(t.params, path, commitments, terminal)
	multiproof, err := proof.CreateMultiproof(t.setup, t.params, key, commitments, polys, zs, ys)
	if err != nil {
		return nil, err
	}
	return &proof.NonMembershipProof{
		PathCommitments: commitments,
		Multiproof:      multiproof,
		Terminal:        terminal,
		QueriedKey:      key,
	}, nil
}

type node struct {
	children   map[byte]*node
	terminal   *proof.Terminal
	polynomial poly.Polynomial
	commitment commit.Commitment
}

type entry struct {
	path []byte
	key  common.Key
}

func (t *Trie) build() (*node, error) {
	entries := make([]entry, 0, len(t.entries))
	for key := range t.entries {
		entries = append(entries, entry{path: proof.ComputePath(t.params, key), key: key})
	}
	root, err := t.buildNode(0, entries)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = &node{}
	}
	return root, nil
}

func (t *Trie) buildNode(level int, entries []entry) (*node, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	res := &node{}
	values := make([]field.Scalar, t.params.Width+1)
	if level == t.params.Depth {
		if len(entries) > 1 {
			return nil, fmt.Errorf("%w: %v and %v", ErrPathCollision, entries[0].key, entries[1].key)
		}
		key := entries[0].key
		res.terminal = &proof.Terminal{Key: key, Value: t.entries[key]}
		values[t.params.Width] = commit.TerminalValue(key, t.entries[key])
	} else {
		groups := map[byte][]entry{}
		for _, e := range entries {
			groups[e.path[level]] = append(groups[e.path[level]], e)
		}
		res.children = map[byte]*node{}
		for index, group := range groups {
			child, err := t.buildNode(level+1, group)
			if err != nil {
				return nil, err
			}
			res.children[index] = child
			values[index] = child.commitment.ToValue()
		}
	}

	p, err := t.setup.NodePolynomial(values)
	if err != nil {
		return nil, err
	}
	c, err := t.setup.Commit(p)
	if err != nil {
		return nil, err
	}
	res.polynomial = p
	res.commitment = c
	return res, nil
}
