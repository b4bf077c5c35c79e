// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/relayer"
	"gopkg.in/yaml.v3"
)

// blockEntry is the YAML representation of a block of the source ledger:
//
//   - height: 1001
//     keys: [0x01..., 0x02...]
type blockEntry struct {
	Height uint64   `yaml:"height"`
	Keys   []string `yaml:"keys"`
}

func readBlocks(path string) ([]relayer.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []blockEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse blocks: %w", err)
	}
	res := make([]relayer.Block, 0, len(entries))
	for _, entry := range entries {
		block := relayer.Block{Height: entry.Height}
		for _, s := range entry.Keys {
			key, err := common.ParseKey(s)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", entry.Height, err)
			}
			block.KeyImages = append(block.KeyImages, key)
		}
		res = append(res, block)
	}
	return res, nil
}

// sliceScanner serves a fixed list of blocks.
type sliceScanner struct {
	blocks []relayer.Block
}

// skip drops all blocks at or below the given height.
func (s *sliceScanner) skip(height uint64) {
	for len(s.blocks) > 0 && s.blocks[0].Height <= height {
		s.blocks = s.blocks[1:]
	}
}

func (s *sliceScanner) Next(ctx context.Context) (relayer.Block, error) {
	if err := ctx.Err(); err != nil {
		return relayer.Block{}, err
	}
	if len(s.blocks) == 0 {
		return relayer.Block{}, relayer.ErrNoNewBlock
	}
	next := s.blocks[0]
	s.blocks = s.blocks[1:]
	return next, nil
}
