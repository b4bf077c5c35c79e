// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package registry

import (
	"testing"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestState_EncodingRoundTrip(t *testing.T) {
	states := map[string]State{
		"zero":      {},
		"empty":     {UpdatedAt: time.Unix(0, 0).UTC()},
		"pre-epoch": {UpdatedAt: time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)},
		"synced": {
			CurrentRoot:       commit.FromPoint(field.Generator().ScalarMul(field.NewScalar(42))),
			LastSyncedBlock:   1050,
			FinalizedBlock:    1020,
			Relayer:           relayer,
			RelayerBond:       amount.New(100),
			SuccessfulUpdates: 7,
			UpdatedAt:         genesisTime.Add(1234 * time.Nanosecond),
			Phase:             Synced,
		},
		"challenged": {
			CurrentRoot:       commit.FromPoint(field.Generator()),
			LastSyncedBlock:   1 << 62,
			Relayer:           challenger,
			RelayerBond:       amount.NewFromUint256(new(uint256.Int).Lsh(uint256.NewInt(1), 200)),
			PendingChallenges: 255,
			SlashCount:        3,
			UpdatedAt:         genesisTime,
			Phase:             Challenged,
		},
	}
	for name, state := range states {
		state := state
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			data, err := state.MarshalBinary()
			require.NoError(err)

			var restored State
			require.NoError(restored.UnmarshalBinary(data))
			require.True(state.CurrentRoot.Equal(restored.CurrentRoot))
			require.Equal(state.LastSyncedBlock, restored.LastSyncedBlock)
			require.Equal(state.FinalizedBlock, restored.FinalizedBlock)
			require.Equal(state.SuccessfulUpdates, restored.SuccessfulUpdates)
			require.Equal(state.SlashCount, restored.SlashCount)
			require.Equal(state.Relayer, restored.Relayer)
			require.Equal(0, state.RelayerBond.Cmp(restored.RelayerBond))
			require.Equal(state.PendingChallenges, restored.PendingChallenges)
			require.Equal(state.UpdatedAt, restored.UpdatedAt)
			require.Equal(state.Phase, restored.Phase)

			again, err := restored.MarshalBinary()
			require.NoError(err)
			require.Equal(data, again)
		})
	}
}

func TestState_UnmarshalBinary_RejectsInvalidInput(t *testing.T) {
	valid, err := State{Phase: Synced}.MarshalBinary()
	require.NoError(t, err)

	invalidPhase, err := State{Phase: Phase(7)}.MarshalBinary()
	require.NoError(t, err)

	inputs := map[string][]byte{
		"empty":         nil,
		"truncated":     valid[:len(valid)-1],
		"not a list":    {0x80},
		"unknown phase": invalidPhase,
	}
	for name, input := range inputs {
		input := input
		t.Run(name, func(t *testing.T) {
			var state State
			require.Error(t, state.UnmarshalBinary(input))
		})
	}
}

func TestRegistry_Checkpoint_RestoresChallengeableState(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, nil)
	genesis := f.trie.Snapshot()

	// A successful challenge leaves a reward and a recovery height behind.
	fraudRange := BlockRange{1001, 1010}
	key, before, after := f.submitUnclaimedKeyFraud(t, fraudRange, genesisTime)
	fraud, err := ProveFraud(FraudUnclaimedKey, fraudRange, key, before, after)
	require.NoError(err)
	require.NoError(f.registry.Challenge(challenger, genesisTime, fraud))

	require.NoError(f.trie.Reset(genesis))
	spentKey := f.newKeys(1)[0]
	require.NoError(f.registry.SubmitUpdate(relayer, genesisTime, f.update(t, BlockRange{1001, 1005}, []common.Key{spentKey})))
	spentBefore := f.trie.Snapshot()
	rng := BlockRange{1006, 1010}
	require.NoError(f.registry.SubmitUpdate(relayer, genesisTime, f.update(t, rng, f.newKeys(2))))
	spent, err := spentBefore.ProveAbsence(spentKey)
	require.NoError(err)
	require.NoError(f.registry.OpenDispute(challenger, genesisTime, rng, spentKey, spent))

	data, err := f.registry.MarshalBinary()
	require.NoError(err)
	restored, err := Restore(f.registry.config, f.setup.VerifierKey(), data)
	require.NoError(err)

	again, err := restored.MarshalBinary()
	require.NoError(err)
	require.Equal(data, again)
	require.True(f.registry.Root().Equal(restored.Root()))
	require.Equal(f.registry.Challengeable(), restored.Challengeable())
	require.Equal(f.registry.Disputes(), restored.Disputes())
	require.Equal(amount.New(25), restored.Reward(challenger))
	require.Equal(Challenged, restored.State().Phase)

	// The restored registry continues where the original left off.
	present, err := f.trie.Snapshot().ProveAbsence(spentKey)
	require.NoError(err)
	require.NoError(restored.AnswerDispute(relayer, genesisTime, rng, spentKey, present))
	require.Equal(Synced, restored.State().Phase)

	fraud, err = ProveFraud(FraudUnclaimedKey, rng, spentKey, spentBefore, f.trie.Snapshot())
	require.NoError(err)
	require.ErrorIs(restored.Challenge(challenger, genesisTime, fraud), ErrInvalidFraudProof)

	next := f.update(t, BlockRange{1011, 1020}, f.newKeys(1))
	require.NoError(restored.SubmitUpdate(relayer, genesisTime, next))
}

func TestRegistry_Restore_RejectsInvalidCheckpoints(t *testing.T) {
	f := newFixture(t, nil)
	data, err := f.registry.MarshalBinary()
	require.NoError(t, err)

	_, err = Restore(f.registry.config, f.setup.VerifierKey(), data[:len(data)-1])
	require.Error(t, err)

	other := f.registry.config
	other.Relayer = challenger
	_, err = Restore(other, f.setup.VerifierKey(), data)
	require.ErrorIs(t, err, ErrInvalidConfig)

	invalid := f.registry.config
	invalid.ResponseWindow = 0
	_, err = Restore(invalid, f.setup.VerifierKey(), data)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
