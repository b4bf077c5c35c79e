// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package config provides the YAML configuration of a relayer node.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/registry"
	"github.com/0xsoniclabs/spentset/relayer"
	"github.com/0xsoniclabs/spentset/verkle/trie"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the configuration of a relayer node.
type Config struct {
	Trie     trie.Config    `yaml:"trie"`
	Relayer  relayer.Config `yaml:"relayer"`
	Registry Registry       `yaml:"registry"`
	Storage  Storage        `yaml:"storage"`

	// ExpectedKeys is the number of key images the tree is expected to hold.
	// It is used to check the memory requirements of the node.
	ExpectedKeys int `yaml:"expected_keys"`
}

// Registry holds the parameters of the registry the relayer submits to.
type Registry struct {
	Relayer         string        `yaml:"relayer"`  // < hex encoded address of the relayer account
	MinBond         string        `yaml:"min_bond"` // < decimal amount
	GenesisBond     string        `yaml:"genesis_bond"`
	SlashPercent    uint64        `yaml:"slash_percent"`
	RewardPercent   uint64        `yaml:"reward_percent"`
	ChallengeWindow time.Duration `yaml:"challenge_window"`
	ResponseWindow  time.Duration `yaml:"response_window"` // < time to answer a dispute
}

// Storage locates the files of a relayer node.
type Storage struct {
	Directory string `yaml:"directory"`
	Setup     string `yaml:"setup"` // < file holding the structured reference string
}

// KeyLogDirectory is the directory of the LevelDB key log.
func (s Storage) KeyLogDirectory() string {
	return filepath.Join(s.Directory, "keylog")
}

// JournalDirectory is the directory of the registry journal.
func (s Storage) JournalDirectory() string {
	return filepath.Join(s.Directory, "journal")
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Trie: trie.Config{
			Width:          256,
			Depth:          32,
			ParallelCommit: true,
		},
		Relayer: relayer.DefaultConfig,
		Registry: Registry{
			MinBond:         "1000",
			GenesisBond:     "1000",
			SlashPercent:    50,
			RewardPercent:   50,
			ChallengeWindow: 24 * time.Hour,
			ResponseWindow:  time.Hour,
		},
		Storage: Storage{
			Directory: "data",
			Setup:     "setup.bin",
		},
		ExpectedKeys: 1 << 20,
	}
}

// Load reads the configuration from the given YAML file. Unset fields keep
// their default values, unknown fields are rejected.
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	return Read(file)
}

// Read is like Load but reads from the given reader.
func Read(in io.Reader) (Config, error) {
	res := Default()
	decoder := yaml.NewDecoder(in)
	decoder.KnownFields(true)
	if err := decoder.Decode(&res); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := res.Validate(); err != nil {
		return Config{}, err
	}
	return res, nil
}

// Write stores the configuration as YAML in the given file.
func (c Config) Write(path string) error {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buffer.Bytes(), 0o600)
}

func (c Config) Validate() error {
	if err := c.Trie.Params().Validate(); err != nil {
		return fmt.Errorf("%w: trie: %w", ErrInvalidConfig, err)
	}
	if err := c.Relayer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.RegistryConfig(); err != nil {
		return err
	}
	if _, err := c.Registry.genesisBond(); err != nil {
		return err
	}
	if c.Storage.Directory == "" {
		return fmt.Errorf("%w: missing storage directory", ErrInvalidConfig)
	}
	if c.ExpectedKeys < 0 {
		return fmt.Errorf("%w: negative number of expected keys", ErrInvalidConfig)
	}
	return nil
}

// RegistryConfig derives the configuration of the registry.
func (c Config) RegistryConfig() (registry.Config, error) {
	if !ethcommon.IsHexAddress(c.Registry.Relayer) {
		return registry.Config{}, fmt.Errorf("%w: invalid relayer address %q", ErrInvalidConfig, c.Registry.Relayer)
	}
	minBond, err := parseAmount(c.Registry.MinBond)
	if err != nil {
		return registry.Config{}, fmt.Errorf("%w: min bond: %w", ErrInvalidConfig, err)
	}
	res := registry.Config{
		Relayer:         common.Address(ethcommon.HexToAddress(c.Registry.Relayer)),
		MinBond:         minBond,
		SlashFraction:   amount.Percent(c.Registry.SlashPercent),
		RewardFraction:  amount.Percent(c.Registry.RewardPercent),
		ChallengeWindow: c.Registry.ChallengeWindow,
		ResponseWindow:  c.Registry.ResponseWindow,
		Params:          c.Trie.Params(),
	}
	if err := res.Validate(); err != nil {
		return registry.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return res, nil
}

// GenesisBond is the bond deposited by the relayer at genesis.
func (c Config) GenesisBond() amount.Amount {
	res, _ := c.Registry.genesisBond()
	return res
}

func (r Registry) genesisBond() (amount.Amount, error) {
	res, err := parseAmount(r.GenesisBond)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("%w: genesis bond: %w", ErrInvalidConfig, err)
	}
	return res, nil
}

func parseAmount(s string) (amount.Amount, error) {
	value, err := uint256.FromDecimal(s)
	if err != nil {
		return amount.Amount{}, err
	}
	return amount.NewFromUint256(value), nil
}

// --- Memory ---

// Rough per-node sizes of the in-memory tree in bytes.
const (
	innerNodeOverhead = 256 // < node header, bitmaps, commitment
	slotSize          = 64  // < child pointer, index, cached child value
	leafSize          = 320 // < key, value, path and commitment
)

// EstimatedMemory estimates the memory in bytes required by a tree holding
// the expected number of keys. Each leaf contributes a slot to an inner node,
// inner nodes are counted for the densely populated top levels only.
func (c Config) EstimatedMemory() uint64 {
	keys := uint64(c.ExpectedKeys)
	width := uint64(c.Trie.Width)
	inner := uint64(0)
	for level, nodes := 0, uint64(1); level < c.Trie.Depth && nodes < keys; level++ {
		inner += nodes
		nodes *= width
	}
	perVersion := keys*(leafSize+slotSize) + inner*innerNodeOverhead
	// Retained versions share all but the nodes touched since. Assume a tenth
	// of the tree to be private to each retained version.
	retained := uint64(c.Relayer.RetainedSnapshots) * perVersion / 10
	return perVersion + retained
}

// CheckMemory compares the estimated memory requirements to the total
// memory of the system. It returns an error if the node is at risk of running
// out of memory.
func (c Config) CheckMemory() error {
	return checkMemory(c.EstimatedMemory(), memory.TotalMemory())
}

func checkMemory(required, total uint64) error {
	if total == 0 {
		return nil // < unknown
	}
	if required > total/2 {
		return fmt.Errorf("estimated memory requirement of %d MiB exceeds half of the system memory of %d MiB",
			required>>20, total>>20)
	}
	return nil
}
