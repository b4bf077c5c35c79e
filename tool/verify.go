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
	"fmt"
	"os"
	"strings"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/0xsoniclabs/spentset/config"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

var (
	keyFlag = cli.StringFlag{
		Name:     "key",
		Usage:    "hex encoded key image the proof is checked for",
		Required: true,
	}
	rootFlag = cli.StringFlag{
		Name:     "root",
		Usage:    "hex encoded root commitment the proof is checked against",
		Required: true,
	}
)

var VerifyCmd = cli.Command{
	Action:    diagnostics.Wrap(doVerify),
	Name:      "verify",
	Usage:     "verify a hex encoded non-membership proof",
	ArgsUsage: "<proof file>",
	Flags: []cli.Flag{
		&configFlag,
		&keyFlag,
		&rootFlag,
	},
}

func doVerify(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing proof file parameter")
	}
	cfg, err := config.Load(context.String(configFlag.Name))
	if err != nil {
		return err
	}
	setup, err := readSetup(cfg.Storage.Setup)
	if err != nil {
		return err
	}
	key, err := common.ParseKey(context.String(keyFlag.Name))
	if err != nil {
		return err
	}
	root, err := parseRoot(context.String(rootFlag.Name))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	encoded, err := hexutil.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid proof encoding: %w", err)
	}

	res := proof.VerifyEncoded(setup.VerifierKey(), cfg.Trie.Params(), encoded, root, key)
	fmt.Fprintf(context.App.Writer, "result: %v\n", res)
	if !res.IsValid() {
		return fmt.Errorf("invalid proof: %v", res.Reason)
	}
	return nil
}
