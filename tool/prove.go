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

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

var outFlag = cli.StringFlag{
	Name:  "out",
	Usage: "file to write the hex encoded proof to, printed if empty",
}

var ProveCmd = cli.Command{
	Action:    diagnostics.Wrap(doProve),
	Name:      "prove",
	Usage:     "create a non-membership proof for a key image against the latest root",
	ArgsUsage: "<key image>",
	Flags: []cli.Flag{
		&configFlag,
		&outFlag,
	},
}

func doProve(context *cli.Context) (err error) {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing key image parameter")
	}
	key, err := common.ParseKey(context.Args().Get(0))
	if err != nil {
		return err
	}

	node, err := openNode(context.String(configFlag.Name), nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, node.Close())
	}()

	p, err := node.relayer.ProveAbsence(key)
	if err != nil {
		return err
	}
	encoded, err := proof.Encode(p)
	if err != nil {
		return err
	}
	res := proof.Verify(node.setup.VerifierKey(), node.config.Trie.Params(), p, p.Root(), key)

	out := context.App.Writer
	fmt.Fprintf(out, "root: %s\n", formatRoot(p.Root()))
	fmt.Fprintf(out, "status: %v\n", res)
	if path := context.String(outFlag.Name); path != "" {
		return os.WriteFile(path, []byte(hexutil.Encode(encoded)), 0o644)
	}
	fmt.Fprintf(out, "proof: %s\n", hexutil.Encode(encoded))
	return nil
}
