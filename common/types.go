// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Address identifies an account of the smart-contract platform, e.g. a
// relayer or a challenger.
type Address = ethcommon.Address

// Key is a 32-byte key image (nullifier) of the source ledger. Key images are
// the keys of the spent set.
type Key [32]byte

// Value is a small payload stored alongside a key. The registry stores the
// block height at which a key image was observed as spent.
type Value [32]byte

// Hash is a 32-byte keccak256 digest.
type Hash [32]byte

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// Compare orders keys lexicographically.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

// ParseKey parses a hex encoded key with an optional 0x prefix.
func ParseKey(s string) (Key, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("invalid key %q: %w", s, err)
	}
	if len(raw) != len(Key{}) {
		return Key{}, fmt.Errorf("invalid key length %d, expected %d", len(raw), len(Key{}))
	}
	return Key(raw), nil
}

// HeightValue encodes a block height as a value, big-endian in the last eight
// bytes.
func HeightValue(height uint64) Value {
	var res Value
	binary.BigEndian.PutUint64(res[24:], height)
	return res
}

// Height is the inverse of HeightValue.
func (v Value) Height() uint64 {
	return binary.BigEndian.Uint64(v[24:])
}

// Keccak256 hashes the concatenation of the given byte slices.
func Keccak256(data ...[]byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hasher.Write(d)
	}
	var res Hash
	hasher.Sum(res[:0])
	return res
}

// KeySetDigest computes an order independent digest of a set of keys. The keys
// are sorted and de-duplicated before hashing.
func KeySetDigest(keys []Key) Hash {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, Key.Compare)
	sorted = slices.Compact(sorted)
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte("spentset/keyset"))
	for _, key := range sorted {
		key := key
		hasher.Write(key[:])
	}
	var res Hash
	hasher.Sum(res[:0])
	return res
}
