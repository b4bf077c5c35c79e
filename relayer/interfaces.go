// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package relayer

//go:generate mockgen -source interfaces.go -destination interfaces_mocks.go -package relayer

import (
	"context"
	"errors"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/registry"
)

// ErrNoNewBlock is reported by a Scanner if the source ledger has no further
// block at the moment.
var ErrNoNewBlock = errors.New("no new block")

// Block lists the key images spent in a block of the source ledger.
type Block struct {
	Height    uint64
	KeyImages []common.Key
}

// Scanner provides the blocks of the source ledger in order of strictly
// increasing heights without gaps.
type Scanner interface {
	// Next returns the next block or ErrNoNewBlock if there is none yet.
	Next(ctx context.Context) (Block, error)
}

// Submitter forwards updates to the registry.
type Submitter interface {
	SubmitUpdate(ctx context.Context, update registry.Update) error
}

// KeyLog is a durable log of the key images inserted into the tree, used to
// rebuild the tree on startup.
type KeyLog interface {
	// LastHeight returns the height of the last logged block, if any.
	LastHeight() (uint64, bool, error)
	Append(height uint64, keys []common.Key) error
	// Replay calls the given function for every logged block in order of
	// increasing heights.
	Replay(fn func(height uint64, keys []common.Key) error) error
	// Truncate removes all blocks above the given height.
	Truncate(height uint64) error
}
