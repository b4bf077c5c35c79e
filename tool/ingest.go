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
	"os/signal"
	"time"

	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/0xsoniclabs/spentset/registry"
	"github.com/0xsoniclabs/spentset/registry/journal"
	"github.com/0xsoniclabs/spentset/relayer"
	"github.com/urfave/cli/v2"
)

var IngestCmd = cli.Command{
	Action:    diagnostics.Wrap(doIngest),
	Name:      "ingest",
	Usage:     "insert the key images of a YAML block file and submit the updates to a local registry",
	ArgsUsage: "<block file>",
	Flags: []cli.Flag{
		&configFlag,
	},
}

func doIngest(context *cli.Context) (err error) {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing block file parameter")
	}
	blocks, err := readBlocks(context.Args().Get(0))
	if err != nil {
		return err
	}

	scanner := &sliceScanner{blocks: blocks}
	submitter := &relayer.LocalSubmitter{}
	node, err := openNode(context.String(configFlag.Name), scanner, submitter)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, node.Close())
	}()
	scanner.skip(node.relayer.Height())

	// The local registry continues from the checkpoint of the last run, or
	// starts from the restored tree. Its transitions are recorded in the
	// journal of the node.
	if err := os.MkdirAll(node.config.Storage.JournalDirectory(), 0o700); err != nil {
		return err
	}
	jrnl, err := journal.Open(node.config.Storage.JournalDirectory())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, jrnl.Close())
	}()
	registryConfig, err := node.config.RegistryConfig()
	if err != nil {
		return err
	}
	registryConfig.Journal = jrnl
	reg, err := openRegistry(jrnl, registryConfig, node)
	if err != nil {
		return err
	}
	submitter.Registry = reg
	submitter.Caller = registryConfig.Relayer

	ctx, stop := signal.NotifyContext(context.Context, os.Interrupt)
	defer stop()

	out := context.App.Writer
	for {
		res, err := node.relayer.Sync(ctx)
		if err != nil {
			return err
		}
		if res.Blocks == 0 {
			break
		}
		if err := saveCheckpoint(jrnl, reg); err != nil {
			return err
		}
		fmt.Fprintf(out, "synced blocks %v with %d new key images, root %s\n", res.Range, res.Keys, formatRoot(res.Root))
	}
	fmt.Fprintf(out, "height: %d\n", node.relayer.Height())
	fmt.Fprintf(out, "root: %s\n", formatRoot(node.relayer.Root()))
	return nil
}

// openRegistry restores the local registry from the journal's checkpoint. If
// there is none, a new registry is created at the height of the node's tree.
func openRegistry(jrnl *journal.Journal, config registry.Config, node *node) (*registry.Registry, error) {
	vk := node.setup.VerifierKey()
	data, found, err := jrnl.LoadCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry checkpoint: %w", err)
	}
	if !found {
		return registry.New(config, vk, registry.Genesis{
			Root:   node.relayer.Root(),
			Height: node.relayer.Height(),
			Bond:   node.config.GenesisBond(),
			Time:   time.Now(),
		})
	}
	reg, err := registry.Restore(config, vk, data)
	if err != nil {
		return nil, err
	}
	state := reg.State()
	if state.LastSyncedBlock != node.relayer.Height() || !state.CurrentRoot.Equal(node.relayer.Root()) {
		return nil, fmt.Errorf("registry synced up to %d with root %s, but the relayer is at %d with root %s",
			state.LastSyncedBlock, formatRoot(state.CurrentRoot), node.relayer.Height(), formatRoot(node.relayer.Root()))
	}
	return reg, nil
}

func saveCheckpoint(jrnl *journal.Journal, reg *registry.Registry) error {
	data, err := reg.MarshalBinary()
	if err != nil {
		return err
	}
	if err := jrnl.SaveCheckpoint(data); err != nil {
		return fmt.Errorf("failed to save registry checkpoint: %w", err)
	}
	return nil
}
