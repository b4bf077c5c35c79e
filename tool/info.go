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

	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/0xsoniclabs/spentset/registry"
	"github.com/0xsoniclabs/spentset/registry/journal"
	"github.com/pbnjay/memory"
	"github.com/urfave/cli/v2"
)

var InfoCmd = cli.Command{
	Action: diagnostics.Wrap(doInfo),
	Name:   "info",
	Usage:  "print information about a relayer node",
	Flags: []cli.Flag{
		&configFlag,
	},
}

func doInfo(context *cli.Context) (err error) {
	node, err := openNode(context.String(configFlag.Name), nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, node.Close())
	}()

	out := context.App.Writer
	cfg := node.config
	fmt.Fprintf(out, "tree: %v\n", cfg.Trie.Params())
	fmt.Fprintf(out, "height: %d\n", node.relayer.Height())
	fmt.Fprintf(out, "keys: %d\n", node.relayer.Len())
	fmt.Fprintf(out, "root: %s\n", formatRoot(node.relayer.Root()))
	fmt.Fprintf(out, "estimated memory: %d MiB of %d MiB\n", cfg.EstimatedMemory()>>20, memory.TotalMemory()>>20)

	if _, err := os.Stat(cfg.Storage.JournalDirectory()); err != nil {
		return nil
	}
	jrnl, err := journal.Open(cfg.Storage.JournalDirectory())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, jrnl.Close())
	}()
	updates, err := jrnl.Updates()
	if err != nil {
		return err
	}
	challenges, err := jrnl.NumChallenges()
	if err != nil {
		return err
	}
	opened, answered, err := jrnl.NumDisputes()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "journaled updates: %d\n", len(updates))
	fmt.Fprintf(out, "journaled challenges: %d\n", challenges)
	fmt.Fprintf(out, "journaled disputes: %d opened, %d answered\n", opened, answered)

	data, found, err := jrnl.LoadCheckpoint()
	if err != nil || !found {
		return err
	}
	registryConfig, err := cfg.RegistryConfig()
	if err != nil {
		return err
	}
	reg, err := registry.Restore(registryConfig, node.setup.VerifierKey(), data)
	if err != nil {
		return err
	}
	state := reg.State()
	fmt.Fprintf(out, "registry phase: %v\n", state.Phase)
	fmt.Fprintf(out, "registry height: %d\n", state.LastSyncedBlock)
	fmt.Fprintf(out, "registry finalized height: %d\n", state.FinalizedBlock)
	fmt.Fprintf(out, "relayer bond: %v\n", state.RelayerBond)
	fmt.Fprintf(out, "pending challenges: %d\n", state.PendingChallenges)
	fmt.Fprintf(out, "successful updates: %d\n", state.SuccessfulUpdates)
	fmt.Fprintf(out, "slashes: %d\n", state.SlashCount)
	return nil
}
