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
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/spentset/common/diagnostics"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	widthFlag = cli.IntFlag{
		Name:  "width",
		Usage: "node width of the tree served by the setup",
		Value: 256,
	}
	ptauFlag = cli.StringFlag{
		Name:  "ptau",
		Usage: "powers-of-tau ceremony file (snarkjs format) to derive the setup from",
	}
	insecureFlag = cli.BoolFlag{
		Name:  "insecure",
		Usage: "generate a setup from a local trapdoor, for tests only",
	}
)

var SetupCmd = cli.Command{
	Action:    diagnostics.Wrap(doSetup),
	Name:      "setup",
	Usage:     "create the structured reference string used for commitments",
	ArgsUsage: "<output file>",
	Flags: []cli.Flag{
		&widthFlag,
		&ptauFlag,
		&insecureFlag,
	},
}

func doSetup(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing output file parameter")
	}
	width := context.Int(widthFlag.Name)

	var setup *commit.Setup
	var err error
	switch ptau := context.String(ptauFlag.Name); {
	case ptau != "":
		setup, err = loadPowersOfTau(ptau, width)
	case context.Bool(insecureFlag.Name):
		log.Warn("Generating insecure setup, do not use it in production")
		setup, err = commit.NewInsecureSetup(width, rand.Reader)
	default:
		return fmt.Errorf("either --%s or --%s is required", ptauFlag.Name, insecureFlag.Name)
	}
	if err != nil {
		return err
	}
	return writeSetup(context.Args().Get(0), setup)
}

func loadPowersOfTau(path string, width int) (*commit.Setup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return commit.LoadPowersOfTau(bufio.NewReader(file), width)
}

func writeSetup(path string, setup *commit.Setup) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	out := bufio.NewWriter(file)
	if _, err := setup.WriteTo(out); err != nil {
		return err
	}
	return out.Flush()
}

func readSetup(path string) (*commit.Setup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return commit.ReadSetup(bufio.NewReader(file))
}
