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
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
)

// Phase is the lifecycle phase of a registry.
type Phase uint8

const (
	// Initialized is the phase of a registry before its first update.
	Initialized Phase = iota
	// Synced is the phase of a registry following the source ledger.
	Synced
	// Challenged is the phase of a registry with open disputes, or after a
	// successful challenge until the reverted heights have been resubmitted.
	Challenged
)

func (p Phase) String() string {
	switch p {
	case Initialized:
		return "Initialized"
	case Synced:
		return "Synced"
	case Challenged:
		return "Challenged"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// BlockRange is an inclusive range of source ledger heights.
type BlockRange struct {
	Start uint64
	End   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Contains returns true if the given height is within the range.
func (r BlockRange) Contains(height uint64) bool {
	return r.Start <= height && height <= r.End
}

// State is the on-chain record of a registry.
type State struct {
	CurrentRoot       commit.Commitment
	LastSyncedBlock   uint64
	FinalizedBlock    uint64 // < updates ending at or below this height can no longer be challenged
	Relayer           common.Address
	RelayerBond       amount.Amount
	PendingChallenges uint8 // < number of open disputes
	SuccessfulUpdates uint64
	SlashCount        uint64
	UpdatedAt         time.Time
	Phase             Phase
}

// Genesis describes the initial state of a registry.
type Genesis struct {
	Root   commit.Commitment // < root of the tree at the genesis height
	Height uint64            // < last source ledger height covered by the root
	Bond   amount.Amount     // < initial bond of the relayer
	Time   time.Time
}

// Update is a relayer's proposal to advance the registry by a range of
// source ledger blocks.
type Update struct {
	NewRoot commit.Commitment
	Range   BlockRange
	NewKeys []common.Key
	Proof   InsertionProof
}

// InsertionProof binds the old root, the new root and the set of inserted
// keys. For every inserted key, in ascending key order, it provides a proof
// of its absence from the old tree and a proof of its presence in the new
// tree. The presence proofs reveal the height at which the key was spent,
// which must be within the update's block range.
//
// The proof does not exclude keys being dropped or added beyond the claimed
// set. Such updates are fraudulent and can be challenged within the challenge
// window.
type InsertionProof struct {
	OldRoot      commit.Commitment
	NewRoot      commit.Commitment
	KeySetDigest common.Hash
	Absent       []*proof.NonMembershipProof
	Present      []*proof.NonMembershipProof
}

// FraudKind enumerates the kinds of detectable relayer misbehavior.
type FraudKind uint8

const (
	// FraudDroppedKey shows a key present in the tree before an update to be
	// absent after it.
	FraudDroppedKey FraudKind = iota + 1
	// FraudUnclaimedKey shows a key not listed by an update to have been
	// inserted by it.
	FraudUnclaimedKey
	// FraudWithheldKey is recorded for disputes the relayer failed to answer
	// in time. It can not be proven by a fraud proof.
	FraudWithheldKey
)

func (k FraudKind) String() string {
	switch k {
	case FraudDroppedKey:
		return "DroppedKey"
	case FraudUnclaimedKey:
		return "UnclaimedKey"
	case FraudWithheldKey:
		return "WithheldKey"
	}
	return fmt.Sprintf("FraudKind(%d)", uint8(k))
}

// FraudProof is evidence that a past update did not transform its old root
// into its new root by inserting exactly its claimed keys.
type FraudProof struct {
	Kind   FraudKind
	Range  BlockRange                // < the range of the challenged update
	Key    common.Key                // < the key witnessing the fraud
	Before *proof.NonMembershipProof // < proof for Key against the update's old root
	After  *proof.NonMembershipProof // < proof for Key against the update's new root
}

// Dispute is an open claim that an update dropped a key. It is raised by a
// challenger proving the key present in the update's old root, which only
// requires a version of the tree the challenger can rebuild. The relayer has
// to answer by proving the key present in the update's new root within the
// response window, or gets slashed as for a successful challenge.
type Dispute struct {
	Range      BlockRange // < the range of the disputed update
	Key        common.Key
	Challenger common.Address
	OpenedAt   time.Time
}

// UpdateRecord describes an applied update.
type UpdateRecord struct {
	Range   BlockRange
	OldRoot commit.Commitment
	NewRoot commit.Commitment
	Keys    []common.Key
	Relayer common.Address
	Time    time.Time
}

// ChallengeRecord describes a successful challenge.
type ChallengeRecord struct {
	Range        BlockRange // < the range of the fraudulent update
	Kind         FraudKind
	Key          common.Key
	Challenger   common.Address
	Slashed      amount.Amount
	Reward       amount.Amount
	RevertedRoot commit.Commitment
	Time         time.Time
}

// DisputeRecord describes the opening or the answering of a dispute.
type DisputeRecord struct {
	Range      BlockRange
	Key        common.Key
	Challenger common.Address
	Answered   bool // < false when opened, true when answered by the relayer
	Time       time.Time
}

//go:generate mockgen -source types.go -destination types_mocks.go -package registry

// Journal receives every state transition of a registry. A transition is only
// applied if it has been recorded successfully.
type Journal interface {
	RecordUpdate(record UpdateRecord) error
	RecordChallenge(record ChallengeRecord) error
	RecordDispute(record DisputeRecord) error
}
