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

import "math/bits"

// bitMap is a set of child indices of an inner node. It is large enough for
// the widest supported node (256 children).
type bitMap [256 / 64]uint64

// get returns true if the given index is in the set.
func (b *bitMap) get(index byte) bool {
	return (b[index/64] & (1 << (index % 64))) != 0
}

// set adds the given index to the set.
func (b *bitMap) set(index byte) {
	b[index/64] |= 1 << (index % 64)
}

// clear removes all indices.
func (b *bitMap) clear() {
	*b = bitMap{}
}

// any returns true if the set is not empty.
func (b *bitMap) any() bool {
	return b[0]|b[1]|b[2]|b[3] != 0
}

// popCount returns the number of indices in the set.
func (b *bitMap) popCount() int {
	count := 0
	for _, v := range b {
		count += bits.OnesCount64(v)
	}
	return count
}

// rank returns the number of indices in the set smaller than the given one.
// For the occupancy map of an inner node this is the position of the slot of
// the given child in the node's sorted slot list.
func (b *bitMap) rank(index byte) int {
	word := index / 64
	count := 0
	for i := byte(0); i < word; i++ {
		count += bits.OnesCount64(b[i])
	}
	mask := uint64(1)<<(index%64) - 1
	return count + bits.OnesCount64(b[word]&mask)
}
