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
	"slices"
	"testing"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/stretchr/testify/require"
)

func TestInner_SetChild_KeepsSlotsSortedByIndex(t *testing.T) {
	require := require.New(t)
	node := newInner(0)
	indices := []byte{7, 3, 12, 0, 5, 15}
	for _, index := range indices {
		node.setChild(index, &leaf{})
	}
	require.Equal(len(indices), node.used.popCount())
	require.True(slices.IsSortedFunc(node.slots, func(a, b slot) int {
		return int(a.index) - int(b.index)
	}))
	for _, index := range indices {
		require.NotNil(node.child(index))
		require.True(node.dirty.get(index))
	}
	require.Nil(node.child(1))
}

func TestInner_Clone_DoesNotShareSlots(t *testing.T) {
	require := require.New(t)
	original := newInner(0)
	original.setChild(1, &leaf{})
	original.dirty.clear()

	clone := original.clone()
	clone.setChild(2, &leaf{})
	clone.setChild(1, &leaf{level: 5})

	require.Len(original.slots, 1)
	require.Equal(0, original.slots[0].child.(*leaf).level)
	require.False(original.dirty.any())
	require.Len(clone.slots, 2)
}

func TestLeaf_Chain_MatchesNodeCommitments(t *testing.T) {
	require := require.New(t)
	params := proof.Params{Width: 16, Depth: 8}
	setup := newTestSetup(t, params.Width)
	key := testKey(1)
	value := common.HeightValue(42)
	path := proof.ComputePath(params, key)

	for level := 1; level <= params.Depth; level++ {
		l := newLeaf(level, update{key: key, value: value, path: path})
		chain := l.chain(setup, params)
		require.Len(chain, params.Depth-level+1)

		// Recompute the chain bottom-up from full node value vectors.
		want, err := setup.NodeCommitment(nil, commit.TerminalValue(key, value))
		require.NoError(err)
		require.True(want.Equal(chain[len(chain)-1]))
		for d := params.Depth - 1; d >= level; d-- {
			children := make([]commit.Commitment, params.Width)
			children[path[d]] = want
			want, err = setup.NodeCommitment(children, field.Scalar{})
			require.NoError(err)
			require.True(want.Equal(chain[d-level]), "level %d", d)
		}

		c, err := l.commit(setup, params)
		require.NoError(err)
		require.True(chain[0].Equal(c))
		require.True(l.isCommitted())
	}
}

func TestLeaf_Insert_SameKeyAndValue_KeepsLeaf(t *testing.T) {
	require := require.New(t)
	params := proof.Params{Width: 16, Depth: 8}
	key := testKey(1)
	u := update{key: key, value: common.HeightValue(1), path: proof.ComputePath(params, key)}
	l := newLeaf(1, u)

	res, err := l.insert(params, []update{u})
	require.NoError(err)
	require.Same(l, res)

	u.value = common.HeightValue(2)
	res, err = l.insert(params, []update{u})
	require.NoError(err)
	require.NotSame(l, res)
	value, found := res.get(u.path, key)
	require.True(found)
	require.Equal(u.value, value)
}

func TestLeaf_Insert_OtherKeys_ProducesInnerNodeWithAllKeys(t *testing.T) {
	require := require.New(t)
	params := proof.Params{Width: 16, Depth: 8}
	updates := make([]update, 5)
	for i := range updates {
		key := testKey(i)
		updates[i] = update{key: key, value: common.HeightValue(uint64(i)), path: proof.ComputePath(params, key)}
	}
	slices.SortFunc(updates, compareUpdates)

	// The leaf holds the middle key, the batch all others.
	l := newLeaf(0, updates[2])
	others := slices.Delete(slices.Clone(updates), 2, 3)

	res, err := l.insert(params, others)
	require.NoError(err)
	node, ok := res.(*inner)
	require.True(ok)
	for _, u := range updates {
		value, found := node.get(u.path, u.key)
		require.True(found)
		require.Equal(u.value, value)
	}
}
