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

	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./tool <command> <flags>

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path of the YAML configuration of the relayer node",
	Value: "relayer.yaml",
}

var commands = []*cli.Command{
	&SetupCmd,
	&IngestCmd,
	&ProveCmd,
	&VerifyCmd,
	&InfoCmd,
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "tool",
		Usage:     "spent-key registry toolbox",
		Copyright: "(c) 2025 Sonic Operations Ltd",
		Flags:     diagnostics.Flags(),
		Commands:  commands,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
