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
	"math/bits"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/verkle/commit"
)

// Params are the shape parameters of a tree. Provers and verifiers must agree
// on them.
type Params struct {
	Width int `yaml:"width"` // < number of children per node, a power of two
	Depth int `yaml:"depth"` // < number of levels below the root
}

// DefaultParams are the production parameters: 256 children per node and 32
// levels, consuming the full 256 bits of the path digest.
var DefaultParams = Params{Width: 256, Depth: 32}

var ErrInvalidParams = errors.New("invalid tree parameters")

// Validate checks the width and that the path digest provides enough bits for
// all levels.
func (p Params) Validate() error {
	if err := commit.CheckWidth(p.Width); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Depth < 1 || p.Depth*p.BitsPerLevel() > 256 {
		return fmt.Errorf("%w: depth %d with width %d needs more than 256 path bits", ErrInvalidParams, p.Depth, p.Width)
	}
	return nil
}

// BitsPerLevel returns log2(width).
func (p Params) BitsPerLevel() int {
	return bits.TrailingZeros(uint(p.Width))
}

func (p Params) String() string {
	return fmt.Sprintf("width=%d,depth=%d", p.Width, p.Depth)
}

const pathDomain = "spentset/path"

// ComputePath derives the path of a key through the tree. The key is hashed
// with keccak256 under a fixed domain tag and the digest is sliced into
// log2(width)-bit child indices, most significant bit first. The params must
// be valid.
func ComputePath(params Params, key common.Key) []byte {
	digest := common.Keccak256([]byte(pathDomain), key[:])
	bitsPerLevel := params.BitsPerLevel()
	path := make([]byte, params.Depth)
	for level := range path {
		var index int
		for b := 0; b < bitsPerLevel; b++ {
			pos := level*bitsPerLevel + b
			bit := (digest[pos/8] >> (7 - pos%8)) & 1
			index = index<<1 | int(bit)
		}
		path[level] = byte(index)
	}
	return path
}
