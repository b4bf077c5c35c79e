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

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/registry"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/0xsoniclabs/spentset/verkle/trie"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const genesisHeight = 1000

var trieConfig = trie.Config{Width: 16, Depth: 8}

func testConfig() Config {
	config := DefaultConfig
	config.GenesisHeight = genesisHeight
	config.SyncInterval = time.Millisecond
	return config
}

func newTestTrie(t *testing.T) (*commit.Setup, *trie.Trie) {
	t.Helper()
	setup, err := commit.NewInsecureSetup(trieConfig.Width, rand.Reader)
	require.NoError(t, err)
	tree, err := trie.NewTrie(setup, trieConfig)
	require.NoError(t, err)
	return setup, tree
}

func testKeys(from, to int) []common.Key {
	res := make([]common.Key, 0, to-from)
	for i := from; i < to; i++ {
		res = append(res, common.Key(common.Keccak256([]byte(fmt.Sprintf("key-%d", i)))))
	}
	return res
}

// expectBlocks lets the scanner report the given blocks followed by
// ErrNoNewBlock on every further call.
func expectBlocks(scanner *MockScanner, blocks ...Block) {
	scanner.EXPECT().Next(gomock.Any()).DoAndReturn(func(context.Context) (Block, error) {
		if len(blocks) == 0 {
			return Block{}, ErrNoNewBlock
		}
		next := blocks[0]
		blocks = blocks[1:]
		return next, nil
	}).AnyTimes()
}

func TestConfig_Validate_RejectsInvalidConfigurations(t *testing.T) {
	modifications := map[string]func(*Config){
		"no blocks per sync":     func(c *Config) { c.MaxBlocksPerSync = 0 },
		"no retained snapshots":  func(c *Config) { c.RetainedSnapshots = 0 },
		"zero sync interval":     func(c *Config) { c.SyncInterval = 0 },
		"negative proof workers": func(c *Config) { c.ProofWorkers = -1 },
	}
	_, tree := newTestTrie(t)
	for name, modify := range modifications {
		modify := modify
		t.Run(name, func(t *testing.T) {
			config := testConfig()
			modify(&config)
			_, err := New(config, tree, nil, nil, nil)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRelayer_Sync_WithoutNewBlocks_DoesNothing(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	scanner.EXPECT().Next(gomock.Any()).Return(Block{}, ErrNoNewBlock)

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, submitter, nil)
	require.NoError(err)

	res, err := relayer.Sync(context.Background())
	require.NoError(err)
	require.Zero(res.Blocks)
	require.Equal(uint64(genesisHeight), relayer.Height())
}

func TestRelayer_Sync_FoldsBlocksIntoSingleUpdate(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)

	keys := testKeys(0, 6)
	expectBlocks(scanner,
		Block{Height: 1001, KeyImages: keys[:2]},
		Block{Height: 1002},
		Block{Height: 1003, KeyImages: keys[2:]},
	)

	setup, tree := newTestTrie(t)
	genesisRoot := tree.Root()

	var submitted registry.Update
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, update registry.Update) error {
			submitted = update
			return nil
		})

	relayer, err := New(testConfig(), tree, scanner, submitter, nil)
	require.NoError(err)
	res, err := relayer.Sync(context.Background())
	require.NoError(err)

	require.Equal(3, res.Blocks)
	require.Equal(registry.BlockRange{Start: 1001, End: 1003}, res.Range)
	require.Equal(len(keys), res.Keys)
	require.True(res.Root.Equal(relayer.Root()))
	require.Equal(uint64(1003), relayer.Height())

	require.Equal(res.Range, submitted.Range)
	require.ElementsMatch(keys, submitted.NewKeys)
	require.True(submitted.NewRoot.Equal(res.Root))
	require.True(submitted.Proof.OldRoot.Equal(genesisRoot))
	require.Len(submitted.Proof.Absent, len(keys))

	// Every key is stored with the height of its block.
	for i, key := range keys {
		value, found := tree.Get(key)
		require.True(found)
		if i < 2 {
			require.Equal(uint64(1001), value.Height())
		} else {
			require.Equal(uint64(1003), value.Height())
		}
		p, err := relayer.ProveAbsence(key)
		require.NoError(err)
		result := proof.Verify(setup.VerifierKey(), trieConfig.Params(), p, res.Root, key)
		require.Equal(proof.Present, result.Status)
	}
}

func TestRelayer_Sync_LimitsNumberOfBlocksPerUpdate(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)

	expectBlocks(scanner,
		Block{Height: 1001, KeyImages: testKeys(0, 1)},
		Block{Height: 1002, KeyImages: testKeys(1, 2)},
		Block{Height: 1003, KeyImages: testKeys(2, 3)},
	)
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	config := testConfig()
	config.MaxBlocksPerSync = 2
	_, tree := newTestTrie(t)
	relayer, err := New(config, tree, scanner, submitter, nil)
	require.NoError(err)

	res, err := relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(registry.BlockRange{Start: 1001, End: 1002}, res.Range)

	res, err = relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(registry.BlockRange{Start: 1003, End: 1003}, res.Range)
	require.Equal(3, tree.Len())
}

func TestRelayer_Sync_RejectedUpdateIsRolledBackAndRetried(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)

	keys := testKeys(0, 3)
	expectBlocks(scanner, Block{Height: 1001, KeyImages: keys})

	_, tree := newTestTrie(t)
	genesisRoot := tree.Root()

	injected := errors.New("injected error")
	var submitted []registry.Update
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, update registry.Update) error {
			submitted = append(submitted, update)
			if len(submitted) == 1 {
				return injected
			}
			return nil
		}).Times(2)

	relayer, err := New(testConfig(), tree, scanner, submitter, nil)
	require.NoError(err)

	_, err = relayer.Sync(context.Background())
	require.ErrorIs(err, injected)
	require.True(genesisRoot.Equal(relayer.Root()))
	require.Zero(tree.Len())
	require.Equal(uint64(genesisHeight), relayer.Height())

	// The scanned block is retried without being scanned again.
	res, err := relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(registry.BlockRange{Start: 1001, End: 1001}, res.Range)
	require.Equal(3, tree.Len())
	require.Len(submitted, 2)
	require.True(submitted[0].NewRoot.Equal(submitted[1].NewRoot))
}

func TestRelayer_Sync_DetectsUnexpectedBlockHeights(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	expectBlocks(scanner, Block{Height: 1001}, Block{Height: 1003})

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, submitter, nil)
	require.NoError(err)

	_, err = relayer.Sync(context.Background())
	require.ErrorIs(err, ErrUnexpectedBlock)
	require.Equal(uint64(genesisHeight), relayer.Height())
}

func TestRelayer_Sync_ForwardsScannerErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	injected := errors.New("injected error")
	scanner.EXPECT().Next(gomock.Any()).Return(Block{}, injected)

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, NewMockSubmitter(ctrl), nil)
	require.NoError(t, err)

	_, err = relayer.Sync(context.Background())
	require.ErrorIs(t, err, injected)
}

func TestRelayer_Sync_KeysSpentTwiceAreInsertedOnce(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)

	keys := testKeys(0, 3)
	expectBlocks(scanner,
		Block{Height: 1001, KeyImages: keys[:2]},
		Block{Height: 1002, KeyImages: keys[1:]},
	)
	var submitted []registry.Update
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, update registry.Update) error {
			submitted = append(submitted, update)
			return nil
		}).AnyTimes()

	config := testConfig()
	config.MaxBlocksPerSync = 1
	_, tree := newTestTrie(t)
	relayer, err := New(config, tree, scanner, submitter, nil)
	require.NoError(err)

	_, err = relayer.Sync(context.Background())
	require.NoError(err)
	_, err = relayer.Sync(context.Background())
	require.NoError(err)

	require.Len(submitted, 2)
	require.Equal(keys[:2], submitted[0].NewKeys)
	require.Equal(keys[2:], submitted[1].NewKeys)

	value, found := tree.Get(keys[1])
	require.True(found)
	require.Equal(uint64(1001), value.Height())
}

func TestRelayer_Sync_UpdatesAreAcceptedByRegistry(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)

	var blocks []Block
	for i := 0; i < 20; i++ {
		blocks = append(blocks, Block{
			Height:    genesisHeight + uint64(i) + 1,
			KeyImages: testKeys(i*5, i*5+i%3),
		})
	}
	expectBlocks(scanner, blocks...)

	setup, tree := newTestTrie(t)
	caller := common.Address{1}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg, err := registry.New(registry.Config{
		Relayer:         caller,
		MinBond:         amount.New(10),
		SlashFraction:   amount.Percent(50),
		RewardFraction:  amount.Percent(50),
		ChallengeWindow: time.Hour,
		ResponseWindow:  time.Hour,
		Params:          trieConfig.Params(),
	}, setup.VerifierKey(), registry.Genesis{
		Root:   tree.Root(),
		Height: genesisHeight,
		Bond:   amount.New(100),
		Time:   now,
	})
	require.NoError(err)

	config := testConfig()
	config.MaxBlocksPerSync = 7
	submitter := &LocalSubmitter{Registry: reg, Caller: caller, Clock: func() time.Time { return now }}
	relayer, err := New(config, tree, scanner, submitter, nil)
	require.NoError(err)

	for relayer.Height() < genesisHeight+20 {
		_, err := relayer.Sync(context.Background())
		require.NoError(err)
	}

	state := reg.State()
	require.Equal(registry.Synced, state.Phase)
	require.Equal(uint64(genesisHeight+20), state.LastSyncedBlock)
	require.True(state.CurrentRoot.Equal(relayer.Root()))
}

func TestRelayer_ProveAbsenceAt_ServesRetainedRoots(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	keys := testKeys(0, 5)
	var blocks []Block
	for i, key := range keys {
		blocks = append(blocks, Block{Height: genesisHeight + uint64(i) + 1, KeyImages: []common.Key{key}})
	}
	expectBlocks(scanner, blocks...)

	config := testConfig()
	config.MaxBlocksPerSync = 1
	config.RetainedSnapshots = 3
	setup, tree := newTestTrie(t)
	relayer, err := New(config, tree, scanner, submitter, nil)
	require.NoError(err)

	roots := []commit.Commitment{tree.Root()}
	for range keys {
		res, err := relayer.Sync(context.Background())
		require.NoError(err)
		roots = append(roots, res.Root)
	}
	require.Len(relayer.Roots(), 3)

	// The last key is absent in all retained versions except the latest.
	last := keys[len(keys)-1]
	for i, root := range roots {
		p, err := relayer.ProveAbsenceAt(root, last)
		if i < len(roots)-3 {
			require.ErrorIs(err, ErrUnknownRoot)
			continue
		}
		require.NoError(err)
		want := proof.Absent
		if i == len(roots)-1 {
			want = proof.Present
		}
		result := proof.Verify(setup.VerifierKey(), trieConfig.Params(), p, root, last)
		require.Equal(want, result.Status)
	}
}

func TestRelayer_Revert_RestoresRetainedVersion(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	expectBlocks(scanner,
		Block{Height: 1001, KeyImages: testKeys(0, 2)},
		Block{Height: 1002, KeyImages: testKeys(2, 4)},
	)

	config := testConfig()
	config.MaxBlocksPerSync = 1
	_, tree := newTestTrie(t)
	relayer, err := New(config, tree, scanner, submitter, nil)
	require.NoError(err)

	first, err := relayer.Sync(context.Background())
	require.NoError(err)
	_, err = relayer.Sync(context.Background())
	require.NoError(err)

	height, err := relayer.Revert(first.Root)
	require.NoError(err)
	require.Equal(uint64(1001), height)
	require.Equal(uint64(1001), relayer.Height())
	require.True(first.Root.Equal(relayer.Root()))
	require.Len(relayer.Roots(), 2)
	require.Equal(2, tree.Len())

	_, err = relayer.Revert(commit.Identity().Add(first.Root).Add(first.Root))
	require.ErrorIs(err, ErrUnknownRoot)
}

func TestRelayer_Restore_ReplaysKeyLog(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	keyLog := NewMockKeyLog(ctrl)

	keys := testKeys(0, 10)
	keyLog.EXPECT().Replay(gomock.Any()).DoAndReturn(
		func(fn func(uint64, []common.Key) error) error {
			for i := 0; i < 5; i++ {
				if err := fn(genesisHeight+uint64(i)+1, keys[2*i:2*i+2]); err != nil {
					return err
				}
			}
			return nil
		})

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, NewMockScanner(ctrl), NewMockSubmitter(ctrl), keyLog)
	require.NoError(err)
	require.NoError(relayer.Restore())

	require.Equal(uint64(genesisHeight+5), relayer.Height())
	require.Equal(len(keys), tree.Len())
	value, found := tree.Get(keys[9])
	require.True(found)
	require.Equal(uint64(genesisHeight+5), value.Height())
	require.True(tree.Root().Equal(relayer.Roots()[len(relayer.Roots())-1]))
}

func TestRelayer_Restore_DetectsGapsInKeyLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	keyLog := NewMockKeyLog(ctrl)
	keyLog.EXPECT().Replay(gomock.Any()).DoAndReturn(
		func(fn func(uint64, []common.Key) error) error {
			return fn(genesisHeight+2, nil)
		})

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, NewMockScanner(ctrl), NewMockSubmitter(ctrl), keyLog)
	require.NoError(t, err)
	require.ErrorIs(t, relayer.Restore(), ErrUnexpectedBlock)
}

func TestRelayer_Sync_AppendsAcceptedBlocksToKeyLog(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	keyLog := NewMockKeyLog(ctrl)

	keys := testKeys(0, 2)
	expectBlocks(scanner, Block{Height: 1001, KeyImages: keys}, Block{Height: 1002})
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil)
	gomock.InOrder(
		keyLog.EXPECT().Append(uint64(1001), keys),
		keyLog.EXPECT().Append(uint64(1002), nil),
	)

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, submitter, keyLog)
	require.NoError(err)
	_, err = relayer.Sync(context.Background())
	require.NoError(err)
}

func TestRelayer_RequestProof_WithoutWorkers_IsServedImmediately(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	setup, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, NewMockScanner(ctrl), NewMockSubmitter(ctrl), nil)
	require.NoError(err)

	key := testKeys(0, 1)[0]
	p, err := relayer.RequestProof(tree.Root(), key).Await().Get()
	require.NoError(err)
	result := proof.Verify(setup.VerifierKey(), trieConfig.Params(), p, tree.Root(), key)
	require.Equal(proof.Absent, result.Status)

	_, err = relayer.RequestProof(commit.FromPoint(setup.VerifierKey().G1), key).Await().Get()
	require.ErrorIs(err, ErrUnknownRoot)
}

func TestRelayer_BackgroundWorkers_SyncAndServeProofs(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)

	keys := testKeys(0, 4)
	expectBlocks(scanner, Block{Height: 1001, KeyImages: keys})
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil)

	setup, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, submitter, nil)
	require.NoError(err)

	require.NoError(relayer.Start(context.Background()))
	require.ErrorIs(relayer.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(func() bool {
		return relayer.Height() == 1001
	}, 5*time.Second, time.Millisecond)

	root := relayer.Root()
	for _, key := range keys {
		p, err := relayer.RequestProof(root, key).Await().Get()
		require.NoError(err)
		result := proof.Verify(setup.VerifierKey(), trieConfig.Params(), p, root, key)
		require.Equal(proof.Present, result.Status)
	}
	require.NoError(relayer.Stop())
	require.NoError(relayer.Stop())
}

func TestRelayer_Stop_ReportsFailedSyncs(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	injected := errors.New("injected error")

	var calls atomic.Int32
	scanner.EXPECT().Next(gomock.Any()).DoAndReturn(func(context.Context) (Block, error) {
		calls.Add(1)
		return Block{}, injected
	}).MinTimes(1)

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, NewMockSubmitter(ctrl), nil)
	require.NoError(err)
	require.NoError(relayer.Start(context.Background()))
	// Syncs are sequential, the first failure is recorded once the second
	// sync starts scanning.
	require.Eventually(func() bool {
		return calls.Load() >= 2
	}, 5*time.Second, time.Millisecond)
	require.ErrorIs(relayer.Stop(), injected)
}

func TestRelayer_Revert_TruncatesKeyLog(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	keyLog := NewMockKeyLog(ctrl)

	expectBlocks(scanner, Block{Height: 1001, KeyImages: testKeys(0, 2)})
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil)
	keyLog.EXPECT().Append(uint64(1001), gomock.Any())
	keyLog.EXPECT().Truncate(uint64(genesisHeight))

	_, tree := newTestTrie(t)
	genesisRoot := tree.Root()
	relayer, err := New(testConfig(), tree, scanner, submitter, keyLog)
	require.NoError(err)
	_, err = relayer.Sync(context.Background())
	require.NoError(err)

	height, err := relayer.Revert(genesisRoot)
	require.NoError(err)
	require.Equal(uint64(genesisHeight), height)
	require.Zero(tree.Len())
}

func newTestRegistry(t *testing.T, setup *commit.Setup, tree *trie.Trie, caller common.Address, now time.Time) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.Config{
		Relayer:         caller,
		MinBond:         amount.New(10),
		SlashFraction:   amount.Percent(50),
		RewardFraction:  amount.Percent(50),
		ChallengeWindow: time.Hour,
		ResponseWindow:  time.Hour,
		Params:          trieConfig.Params(),
	}, setup.VerifierKey(), registry.Genesis{
		Root:   tree.Root(),
		Height: genesisHeight,
		Bond:   amount.New(100),
		Time:   now,
	})
	require.NoError(t, err)
	return reg
}

func TestRelayer_Sync_FollowsAcceptedUpdateWhenKeyLogFails(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	keyLog := NewMockKeyLog(ctrl)

	first, second := testKeys(0, 3), testKeys(3, 5)
	expectBlocks(scanner, Block{Height: 1001, KeyImages: first}, Block{Height: 1002, KeyImages: second})

	setup, tree := newTestTrie(t)
	caller := common.Address{1}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(t, setup, tree, caller, now)
	submitter := &LocalSubmitter{Registry: reg, Caller: caller, Clock: func() time.Time { return now }}

	diskFull := errors.New("disk full")
	gomock.InOrder(
		keyLog.EXPECT().Append(uint64(1001), first).Return(diskFull),
		keyLog.EXPECT().LastHeight().Return(uint64(0), false, nil),
		keyLog.EXPECT().Append(uint64(1001), first),
		keyLog.EXPECT().Append(uint64(1002), second),
	)

	config := testConfig()
	config.MaxBlocksPerSync = 1
	relayer, err := New(config, tree, scanner, submitter, keyLog)
	require.NoError(err)

	res, err := relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(1, res.Blocks)
	require.Equal(uint64(1001), relayer.Height())
	require.Equal(reg.State().LastSyncedBlock, relayer.Height())
	require.True(reg.Root().Equal(relayer.Root()))
	require.Equal(1, relayer.Unlogged())

	// The next sync logs the missing block before advancing.
	res, err = relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(registry.BlockRange{Start: 1002, End: 1002}, res.Range)
	require.Equal(uint64(1002), reg.State().LastSyncedBlock)
	require.True(reg.Root().Equal(relayer.Root()))
	require.Zero(relayer.Unlogged())
}

func TestRelayer_Sync_CatchUpSkipsBlocksAlreadyLogged(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	scanner := NewMockScanner(ctrl)
	submitter := NewMockSubmitter(ctrl)
	keyLog := NewMockKeyLog(ctrl)

	expectBlocks(scanner, Block{Height: 1001}, Block{Height: 1002})
	submitter.EXPECT().SubmitUpdate(gomock.Any(), gomock.Any()).Return(nil)

	injected := errors.New("injected error")
	gomock.InOrder(
		keyLog.EXPECT().Append(uint64(1001), nil),
		keyLog.EXPECT().Append(uint64(1002), nil).Return(injected),
		keyLog.EXPECT().LastHeight().Return(uint64(1001), true, nil),
		keyLog.EXPECT().Append(uint64(1002), nil),
	)

	_, tree := newTestTrie(t)
	relayer, err := New(testConfig(), tree, scanner, submitter, keyLog)
	require.NoError(err)

	_, err = relayer.Sync(context.Background())
	require.NoError(err)
	require.Equal(uint64(1002), relayer.Height())
	require.Equal(1, relayer.Unlogged())

	res, err := relayer.Sync(context.Background())
	require.NoError(err)
	require.Zero(res.Blocks)
	require.Zero(relayer.Unlogged())
}
