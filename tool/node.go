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
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/spentset/backend/keylog"
	"github.com/0xsoniclabs/spentset/config"
	"github.com/0xsoniclabs/spentset/relayer"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/trie"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// node bundles the components of a relayer node restored from its storage
// directory.
type node struct {
	config  config.Config
	setup   *commit.Setup
	keyLog  *keylog.KeyLog
	relayer *relayer.Relayer
}

// openNode restores the relayer node described by the given configuration
// file. The scanner and submitter may be nil if the node is only used to
// serve proofs.
func openNode(path string, scanner relayer.Scanner, submitter relayer.Submitter) (*node, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckMemory(); err != nil {
		log.Warn("You are at risk of running out of memory", "err", err)
	}
	setup, err := readSetup(cfg.Storage.Setup)
	if err != nil {
		return nil, fmt.Errorf("failed to load setup: %w", err)
	}
	tree, err := trie.NewTrie(setup, cfg.Trie)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.Directory, 0o700); err != nil {
		return nil, err
	}
	keyLog, err := keylog.Open(cfg.Storage.KeyLogDirectory())
	if err != nil {
		return nil, err
	}
	rel, err := relayer.New(cfg.Relayer, tree, scanner, submitter, keyLog)
	if err != nil {
		return nil, errors.Join(err, keyLog.Close())
	}
	if err := rel.Restore(); err != nil {
		return nil, errors.Join(err, keyLog.Close())
	}
	return &node{
		config:  cfg,
		setup:   setup,
		keyLog:  keyLog,
		relayer: rel,
	}, nil
}

func (n *node) Close() error {
	return n.keyLog.Close()
}

func formatRoot(root commit.Commitment) string {
	compressed := root.Compress()
	return hexutil.Encode(compressed[:])
}

func parseRoot(s string) (commit.Commitment, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return commit.Commitment{}, fmt.Errorf("invalid root %q: %w", s, err)
	}
	return commit.Decompress(data)
}
