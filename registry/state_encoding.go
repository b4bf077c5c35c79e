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
	"fmt"
	"slices"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// encodedState is the RLP layout of the on-chain registry record.
type encodedState struct {
	Root              [field.PointSize]byte
	LastSyncedBlock   uint64
	FinalizedBlock    uint64
	Relayer           common.Address
	RelayerBond       *uint256.Int
	PendingChallenges uint8
	SuccessfulUpdates uint64
	SlashCount        uint64
	UpdatedAt         []byte // < time.Time binary encoding
	Phase             uint8
}

// MarshalBinary encodes the state in its durable RLP representation.
func (s State) MarshalBinary() ([]byte, error) {
	encoded, err := s.encode()
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(encoded)
}

// UnmarshalBinary decodes a state produced by MarshalBinary.
func (s *State) UnmarshalBinary(data []byte) error {
	var encoded encodedState
	if err := rlp.DecodeBytes(data, &encoded); err != nil {
		return fmt.Errorf("failed to decode registry state: %w", err)
	}
	return s.decode(&encoded)
}

func (s State) encode() (*encodedState, error) {
	updatedAt, err := s.UpdatedAt.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode update time: %w", err)
	}
	return &encodedState{
		Root:              s.CurrentRoot.Compress(),
		LastSyncedBlock:   s.LastSyncedBlock,
		FinalizedBlock:    s.FinalizedBlock,
		Relayer:           s.Relayer,
		RelayerBond:       s.RelayerBond.Uint256(),
		PendingChallenges: s.PendingChallenges,
		SuccessfulUpdates: s.SuccessfulUpdates,
		SlashCount:        s.SlashCount,
		UpdatedAt:         updatedAt,
		Phase:             uint8(s.Phase),
	}, nil
}

func (s *State) decode(encoded *encodedState) error {
	root, err := commit.Decompress(encoded.Root[:])
	if err != nil {
		return fmt.Errorf("failed to decode registry root: %w", err)
	}
	if encoded.Phase > uint8(Challenged) {
		return fmt.Errorf("unknown registry phase %d", encoded.Phase)
	}
	var updatedAt time.Time
	if err := updatedAt.UnmarshalBinary(encoded.UpdatedAt); err != nil {
		return fmt.Errorf("failed to decode update time: %w", err)
	}
	*s = State{
		CurrentRoot:       root,
		LastSyncedBlock:   encoded.LastSyncedBlock,
		FinalizedBlock:    encoded.FinalizedBlock,
		Relayer:           encoded.Relayer,
		RelayerBond:       amount.NewFromUint256(encoded.RelayerBond),
		PendingChallenges: encoded.PendingChallenges,
		SuccessfulUpdates: encoded.SuccessfulUpdates,
		SlashCount:        encoded.SlashCount,
		UpdatedAt:         updatedAt,
		Phase:             Phase(encoded.Phase),
	}
	return nil
}

// encodedCheckpoint is the RLP layout of a full registry checkpoint.
type encodedCheckpoint struct {
	State          encodedState
	RecoveryHeight uint64
	History        []encodedUpdate
	Disputes       []encodedDispute
	Rewards        []encodedReward
}

type encodedUpdate struct {
	Start, End uint64
	OldRoot    [field.PointSize]byte
	NewRoot    [field.PointSize]byte
	Keys       []common.Key
	AppliedAt  []byte
}

type encodedDispute struct {
	Start, End uint64
	Key        common.Key
	Challenger common.Address
	OpenedAt   []byte
}

type encodedReward struct {
	Account common.Address
	Value   *uint256.Int
}

// MarshalBinary encodes a checkpoint of the registry, covering its state, the
// updates which may still be challenged, open disputes and unclaimed rewards.
// The checkpoint can be loaded with Restore.
func (r *Registry) MarshalBinary() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.state.encode()
	if err != nil {
		return nil, err
	}
	res := encodedCheckpoint{
		State:          *state,
		RecoveryHeight: r.recoveryHeight,
	}
	for _, u := range r.history {
		appliedAt, err := u.appliedAt.MarshalBinary()
		if err != nil {
			return nil, err
		}
		res.History = append(res.History, encodedUpdate{
			Start:     u.rng.Start,
			End:       u.rng.End,
			OldRoot:   u.oldRoot.Compress(),
			NewRoot:   u.newRoot.Compress(),
			Keys:      u.keys,
			AppliedAt: appliedAt,
		})
	}
	for _, d := range r.disputes {
		openedAt, err := d.OpenedAt.MarshalBinary()
		if err != nil {
			return nil, err
		}
		res.Disputes = append(res.Disputes, encodedDispute{
			Start:      d.Range.Start,
			End:        d.Range.End,
			Key:        d.Key,
			Challenger: d.Challenger,
			OpenedAt:   openedAt,
		})
	}
	for account, value := range r.rewards {
		res.Rewards = append(res.Rewards, encodedReward{Account: account, Value: value.Uint256()})
	}
	slices.SortFunc(res.Rewards, func(a, b encodedReward) int {
		return a.Account.Cmp(b.Account)
	})
	return rlp.EncodeToBytes(&res)
}

// Restore recreates a registry from a checkpoint produced by MarshalBinary.
// The configuration has to name the relayer the checkpoint was taken for.
func Restore(config Config, vk commit.VerifierKey, data []byte) (*Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var encoded encodedCheckpoint
	if err := rlp.DecodeBytes(data, &encoded); err != nil {
		return nil, fmt.Errorf("failed to decode registry checkpoint: %w", err)
	}
	var state State
	if err := state.decode(&encoded.State); err != nil {
		return nil, err
	}
	if state.Relayer != config.Relayer {
		return nil, fmt.Errorf("%w: checkpoint is bound to relayer %v", ErrInvalidConfig, state.Relayer)
	}
	if int(state.PendingChallenges) != len(encoded.Disputes) {
		return nil, fmt.Errorf("checkpoint lists %d disputes, state counts %d", len(encoded.Disputes), state.PendingChallenges)
	}

	res := &Registry{
		config:         config,
		vk:             vk,
		log:            log.New("module", "registry"),
		state:          state,
		recoveryHeight: encoded.RecoveryHeight,
		rewards:        map[common.Address]amount.Amount{},
	}
	for _, u := range encoded.History {
		u := u
		oldRoot, err := commit.Decompress(u.OldRoot[:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode root of update %d-%d: %w", u.Start, u.End, err)
		}
		newRoot, err := commit.Decompress(u.NewRoot[:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode root of update %d-%d: %w", u.Start, u.End, err)
		}
		if !slices.IsSortedFunc(u.Keys, common.Key.Compare) {
			return nil, fmt.Errorf("keys of update %d-%d are not sorted", u.Start, u.End)
		}
		var appliedAt time.Time
		if err := appliedAt.UnmarshalBinary(u.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to decode time of update %d-%d: %w", u.Start, u.End, err)
		}
		res.history = append(res.history, appliedUpdate{
			rng:       BlockRange{Start: u.Start, End: u.End},
			oldRoot:   oldRoot,
			newRoot:   newRoot,
			keys:      u.Keys,
			appliedAt: appliedAt,
		})
	}
	for _, d := range encoded.Disputes {
		var openedAt time.Time
		if err := openedAt.UnmarshalBinary(d.OpenedAt); err != nil {
			return nil, fmt.Errorf("failed to decode time of dispute: %w", err)
		}
		res.disputes = append(res.disputes, Dispute{
			Range:      BlockRange{Start: d.Start, End: d.End},
			Key:        d.Key,
			Challenger: d.Challenger,
			OpenedAt:   openedAt,
		})
	}
	for _, reward := range encoded.Rewards {
		res.rewards[reward.Account] = amount.NewFromUint256(reward.Value)
	}
	return res, nil
}
