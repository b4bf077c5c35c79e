// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package registry implements the state machine of the spent-key registry
// published on the smart-contract platform. A bonded relayer advances the
// registry's root by submitting updates covering consecutive ranges of source
// ledger blocks. Any party may challenge an update within the challenge window
// by presenting a fraud proof, slashing the relayer's bond and reverting the
// registry to the root preceding the fraudulent update.
//
// Fraud a challenger can not prove without the relayer's tree, a key dropped
// by an update, is handled by disputes. The challenger proves the key present
// before the update and the relayer has to prove it present after the update
// within the response window.
package registry

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/amount"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrUnauthorizedRelayer    = errors.New("caller is not the registered relayer")
	ErrInvalidBlockRange      = errors.New("invalid block range")
	ErrDuplicateUpdate        = errors.New("block range already applied")
	ErrNonSequentialRange     = errors.New("block range does not continue the last synced block")
	ErrInsufficientBond       = errors.New("relayer bond below minimum")
	ErrInvalidInsertionProof  = errors.New("invalid insertion proof")
	ErrChallengeWindowExpired = errors.New("challenge window expired")
	ErrUnknownUpdate          = errors.New("unknown update")
	ErrInvalidFraudProof      = errors.New("invalid fraud proof")
	ErrInvalidConfig          = errors.New("invalid registry configuration")
	ErrInvalidDispute         = errors.New("invalid dispute")
	ErrUnknownDispute         = errors.New("unknown dispute")
	ErrDuplicateDispute       = errors.New("dispute already open")
	ErrTooManyDisputes        = errors.New("too many open disputes")
	ErrResponseWindowExpired  = errors.New("response window expired")
)

// Config provides the economic and cryptographic parameters of a registry.
type Config struct {
	Relayer         common.Address
	MinBond         amount.Amount
	SlashFraction   amount.Fraction // < fraction of the bond slashed on a successful challenge
	RewardFraction  amount.Fraction // < fraction of the slashed amount paid to the challenger
	ChallengeWindow time.Duration
	ResponseWindow  time.Duration // < time the relayer has to answer a dispute
	Params          proof.Params
	Journal         Journal // < optional
}

// Validate checks the consistency of the configuration.
func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.SlashFraction.Validate(); err != nil {
		return fmt.Errorf("%w: slash fraction: %w", ErrInvalidConfig, err)
	}
	if err := c.RewardFraction.Validate(); err != nil {
		return fmt.Errorf("%w: reward fraction: %w", ErrInvalidConfig, err)
	}
	if c.ChallengeWindow <= 0 {
		return fmt.Errorf("%w: challenge window must be positive", ErrInvalidConfig)
	}
	if c.ResponseWindow <= 0 {
		return fmt.Errorf("%w: response window must be positive", ErrInvalidConfig)
	}
	return nil
}

// Registry is the spent-key registry state machine. It is safe for
// concurrent use; transitions are serialised.
type Registry struct {
	config Config
	vk     commit.VerifierKey
	log    log.Logger

	mu    sync.Mutex
	state State

	// history lists the applied updates which may still be challenged, in
	// order of application.
	history []appliedUpdate

	// disputes lists the open disputes in order of opening.
	disputes []Dispute

	// recoveryHeight is the height the registry had synced to before its
	// latest successful challenge. It is Challenged until reaching it again.
	recoveryHeight uint64

	rewards map[common.Address]amount.Amount
}

type appliedUpdate struct {
	rng       BlockRange
	oldRoot   commit.Commitment
	newRoot   commit.Commitment
	keys      []common.Key // < sorted
	appliedAt time.Time
}

// New creates a registry in its initial phase.
func New(config Config, vk commit.VerifierKey, genesis Genesis) (*Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Registry{
		config: config,
		vk:     vk,
		log:    log.New("module", "registry"),
		state: State{
			CurrentRoot:     genesis.Root,
			LastSyncedBlock: genesis.Height,
			FinalizedBlock:  genesis.Height,
			Relayer:         config.Relayer,
			RelayerBond:     genesis.Bond,
			UpdatedAt:       genesis.Time,
			Phase:           Initialized,
		},
		rewards: map[common.Address]amount.Amount{},
	}, nil
}

// Root returns the current root of the registry.
func (r *Registry) Root() commit.Commitment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CurrentRoot
}

// State returns a copy of the current state of the registry.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Params returns the tree parameters proofs are verified with.
func (r *Registry) Params() proof.Params {
	return r.config.Params
}

// VerifierKey returns the key proofs are verified with.
func (r *Registry) VerifierKey() commit.VerifierKey {
	return r.vk
}

// Disputes returns the open disputes in order of opening.
func (r *Registry) Disputes() []Dispute {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.disputes)
}

// Reward returns the rewards credited to the given challenger.
func (r *Registry) Reward(account common.Address) amount.Amount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rewards[account]
}

// AddBond increases the relayer's bond.
func (r *Registry) AddBond(caller common.Address, value amount.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.state.Relayer {
		return ErrUnauthorizedRelayer
	}
	bond, err := r.state.RelayerBond.Add(value)
	if err != nil {
		return err
	}
	r.state.RelayerBond = bond
	return nil
}

// SubmitUpdate applies an update proposed by the relayer. Before checking the
// update, disputes the relayer failed to answer are resolved and updates
// beyond their challenge window are finalized, see Finalize. A rejected
// update leaves the registry unchanged otherwise.
func (r *Registry) SubmitUpdate(caller common.Address, now time.Time, update Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.state.Relayer {
		return ErrUnauthorizedRelayer
	}
	if _, err := r.finalize(now); err != nil {
		return err
	}
	rng := update.Range
	if rng.Start > rng.End {
		return fmt.Errorf("%w: %v", ErrInvalidBlockRange, rng)
	}
	if rng.End <= r.state.LastSyncedBlock {
		return fmt.Errorf("%w: %v, synced up to %d", ErrDuplicateUpdate, rng, r.state.LastSyncedBlock)
	}
	if rng.Start != r.state.LastSyncedBlock+1 {
		return fmt.Errorf("%w: %v, synced up to %d", ErrNonSequentialRange, rng, r.state.LastSyncedBlock)
	}
	if r.state.RelayerBond.Cmp(r.config.MinBond) < 0 {
		return fmt.Errorf("%w: %v < %v", ErrInsufficientBond, r.state.RelayerBond, r.config.MinBond)
	}
	keys, err := r.checkInsertionProof(update)
	if err != nil {
		return err
	}

	if r.config.Journal != nil {
		err := r.config.Journal.RecordUpdate(UpdateRecord{
			Range:   rng,
			OldRoot: r.state.CurrentRoot,
			NewRoot: update.NewRoot,
			Keys:    keys,
			Relayer: caller,
			Time:    now,
		})
		if err != nil {
			return fmt.Errorf("failed to record update: %w", err)
		}
	}

	r.history = append(r.history, appliedUpdate{
		rng:       rng,
		oldRoot:   r.state.CurrentRoot,
		newRoot:   update.NewRoot,
		keys:      keys,
		appliedAt: now,
	})
	r.state.CurrentRoot = update.NewRoot
	r.state.LastSyncedBlock = rng.End
	r.state.SuccessfulUpdates++
	r.state.UpdatedAt = now
	r.updatePhase()
	r.log.Info("Applied update", "range", rng, "keys", len(keys), "root", update.NewRoot)
	return nil
}

// checkInsertionProof verifies that the update's proof binds the current
// root, the new root and the update's key set. It returns the sorted keys.
func (r *Registry) checkInsertionProof(update Update) ([]common.Key, error) {
	p := &update.Proof
	if !p.OldRoot.Equal(r.state.CurrentRoot) {
		return nil, fmt.Errorf("%w: proof does not start at the current root", ErrInvalidInsertionProof)
	}
	if !p.NewRoot.Equal(update.NewRoot) {
		return nil, fmt.Errorf("%w: proof does not end at the new root", ErrInvalidInsertionProof)
	}

	keys := slices.Clone(update.NewKeys)
	slices.SortFunc(keys, common.Key.Compare)
	if len(slices.Compact(slices.Clone(keys))) != len(keys) {
		return nil, fmt.Errorf("%w: duplicate keys", ErrInvalidInsertionProof)
	}
	if common.KeySetDigest(keys) != p.KeySetDigest {
		return nil, fmt.Errorf("%w: key set digest mismatch", ErrInvalidInsertionProof)
	}
	if len(p.Absent) != len(keys) || len(p.Present) != len(keys) {
		return nil, fmt.Errorf("%w: %d keys, %d absence and %d presence proofs",
			ErrInvalidInsertionProof, len(keys), len(p.Absent), len(p.Present))
	}
	if len(keys) == 0 && !update.NewRoot.Equal(p.OldRoot) {
		return nil, fmt.Errorf("%w: empty update changes the root", ErrInvalidInsertionProof)
	}

	params := r.config.Params
	for i, key := range keys {
		if res := proof.Verify(r.vk, params, p.Absent[i], p.OldRoot, key); res.Status != proof.Absent {
			return nil, fmt.Errorf("%w: key %v not absent from old root: %v", ErrInvalidInsertionProof, key, res)
		}
		present := p.Present[i]
		if res := proof.Verify(r.vk, params, present, p.NewRoot, key); res.Status != proof.Present {
			return nil, fmt.Errorf("%w: key %v not present in new root: %v", ErrInvalidInsertionProof, key, res)
		}
		if height := present.Terminal.Value.Height(); !update.Range.Contains(height) {
			return nil, fmt.Errorf("%w: key %v spent at height %d outside of %v", ErrInvalidInsertionProof, key, height, update.Range)
		}
	}
	return keys, nil
}

// Challenge processes a fraud proof against a past update. On success, the
// relayer's bond is slashed, the challenger is rewarded and the registry is
// reverted to the root preceding the fraudulent update. All later updates and
// their disputes are discarded.
func (r *Registry) Challenge(challenger common.Address, now time.Time, fraud FraudProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.lookup(fraud.Range)
	if err != nil {
		return err
	}
	target := r.history[pos]
	if now.Sub(target.appliedAt) > r.config.ChallengeWindow {
		return fmt.Errorf("%w: update %v applied at %v", ErrChallengeWindowExpired, fraud.Range, target.appliedAt)
	}
	if err := r.checkFraudProof(target, fraud); err != nil {
		return err
	}
	return r.slash(pos, now, ChallengeRecord{
		Kind:       fraud.Kind,
		Key:        fraud.Key,
		Challenger: challenger,
	})
}

// lookup locates the applied update covering the given range.
func (r *Registry) lookup(rng BlockRange) (int, error) {
	pos := slices.IndexFunc(r.history, func(u appliedUpdate) bool {
		return u.rng == rng
	})
	if pos >= 0 {
		return pos, nil
	}
	if rng.End <= r.state.FinalizedBlock {
		return -1, fmt.Errorf("%w: %v is final, finalized up to %d", ErrChallengeWindowExpired, rng, r.state.FinalizedBlock)
	}
	return -1, fmt.Errorf("%w: %v", ErrUnknownUpdate, rng)
}

func (r *Registry) checkFraudProof(target appliedUpdate, fraud FraudProof) error {
	params := r.config.Params
	before := proof.Verify(r.vk, params, fraud.Before, target.oldRoot, fraud.Key)
	after := proof.Verify(r.vk, params, fraud.After, target.newRoot, fraud.Key)

	switch fraud.Kind {
	case FraudDroppedKey:
		if before.Status == proof.Present && after.Status == proof.Absent {
			return nil
		}
	case FraudUnclaimedKey:
		_, claimed := slices.BinarySearchFunc(target.keys, fraud.Key, common.Key.Compare)
		if claimed {
			return fmt.Errorf("%w: key %v is claimed by the update", ErrInvalidFraudProof, fraud.Key)
		}
		if before.Status == proof.Absent && after.Status == proof.Present {
			return nil
		}
	case FraudWithheldKey:
		return fmt.Errorf("%w: withheld keys are resolved by disputes", ErrInvalidFraudProof)
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidFraudProof, fraud.Kind)
	}
	return fmt.Errorf("%w: %v before, %v after", ErrInvalidFraudProof, before, after)
}

// slash punishes the relayer for the update at the given position of the
// history and reverts the registry to the update's old root. The given
// record names the kind of fraud, the witnessing key and the challenger.
func (r *Registry) slash(pos int, now time.Time, record ChallengeRecord) error {
	target := r.history[pos]
	slashed, err := r.state.RelayerBond.Scale(r.config.SlashFraction)
	if err != nil {
		return err
	}
	bond, err := r.state.RelayerBond.Sub(slashed)
	if err != nil {
		return err
	}
	reward, err := slashed.Scale(r.config.RewardFraction)
	if err != nil {
		return err
	}
	credited, err := r.rewards[record.Challenger].Add(reward)
	if err != nil {
		return err
	}

	record.Range = target.rng
	record.Slashed = slashed
	record.Reward = reward
	record.RevertedRoot = target.oldRoot
	record.Time = now
	if r.config.Journal != nil {
		if err := r.config.Journal.RecordChallenge(record); err != nil {
			return fmt.Errorf("failed to record challenge: %w", err)
		}
	}

	r.recoveryHeight = max(r.recoveryHeight, r.state.LastSyncedBlock)
	r.history = r.history[:pos]
	r.disputes = slices.DeleteFunc(r.disputes, func(d Dispute) bool {
		return d.Range.Start >= target.rng.Start
	})
	r.rewards[record.Challenger] = credited
	r.state.RelayerBond = bond
	r.state.CurrentRoot = target.oldRoot
	r.state.LastSyncedBlock = target.rng.Start - 1
	r.state.PendingChallenges = uint8(len(r.disputes))
	r.state.SlashCount++
	r.state.UpdatedAt = now
	r.updatePhase()
	r.log.Warn("Slashed relayer",
		"kind", record.Kind, "range", record.Range, "key", record.Key,
		"slashed", slashed, "reward", reward, "root", target.oldRoot,
	)
	return nil
}

// OpenDispute raises a dispute claiming that the update covering the given
// range dropped the given key. The spent proof has to show the key present
// in the update's old root. Disputes can only be opened within the update's
// challenge window.
func (r *Registry) OpenDispute(challenger common.Address, now time.Time, rng BlockRange, key common.Key, spent *proof.NonMembershipProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.lookup(rng)
	if err != nil {
		return err
	}
	target := r.history[pos]
	if now.Sub(target.appliedAt) > r.config.ChallengeWindow {
		return fmt.Errorf("%w: update %v applied at %v", ErrChallengeWindowExpired, rng, target.appliedAt)
	}
	if slices.ContainsFunc(r.disputes, func(d Dispute) bool { return d.Range == rng && d.Key == key }) {
		return fmt.Errorf("%w: key %v in %v", ErrDuplicateDispute, key, rng)
	}
	if len(r.disputes) >= math.MaxUint8 {
		return ErrTooManyDisputes
	}
	if res := proof.Verify(r.vk, r.config.Params, spent, target.oldRoot, key); res.Status != proof.Present {
		return fmt.Errorf("%w: key %v not present before %v: %v", ErrInvalidDispute, key, rng, res)
	}

	dispute := Dispute{Range: rng, Key: key, Challenger: challenger, OpenedAt: now}
	if r.config.Journal != nil {
		err := r.config.Journal.RecordDispute(DisputeRecord{
			Range:      rng,
			Key:        key,
			Challenger: challenger,
			Time:       now,
		})
		if err != nil {
			return fmt.Errorf("failed to record dispute: %w", err)
		}
	}
	r.disputes = append(r.disputes, dispute)
	r.state.PendingChallenges = uint8(len(r.disputes))
	r.state.UpdatedAt = now
	r.updatePhase()
	r.log.Warn("Opened dispute", "range", rng, "key", key, "challenger", challenger)
	return nil
}

// AnswerDispute closes the dispute on the given key and range. The present
// proof has to show the key present in the disputed update's new root.
func (r *Registry) AnswerDispute(caller common.Address, now time.Time, rng BlockRange, key common.Key, present *proof.NonMembershipProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.state.Relayer {
		return ErrUnauthorizedRelayer
	}
	idx := slices.IndexFunc(r.disputes, func(d Dispute) bool { return d.Range == rng && d.Key == key })
	if idx < 0 {
		return fmt.Errorf("%w: key %v in %v", ErrUnknownDispute, key, rng)
	}
	dispute := r.disputes[idx]
	if now.Sub(dispute.OpenedAt) > r.config.ResponseWindow {
		return fmt.Errorf("%w: dispute opened at %v", ErrResponseWindowExpired, dispute.OpenedAt)
	}
	pos, err := r.lookup(rng)
	if err != nil {
		return err
	}
	if res := proof.Verify(r.vk, r.config.Params, present, r.history[pos].newRoot, key); res.Status != proof.Present {
		return fmt.Errorf("%w: key %v not present after %v: %v", ErrInvalidDispute, key, rng, res)
	}

	if r.config.Journal != nil {
		err := r.config.Journal.RecordDispute(DisputeRecord{
			Range:      rng,
			Key:        key,
			Challenger: dispute.Challenger,
			Answered:   true,
			Time:       now,
		})
		if err != nil {
			return fmt.Errorf("failed to record dispute: %w", err)
		}
	}
	r.disputes = slices.Delete(r.disputes, idx, idx+1)
	r.state.PendingChallenges = uint8(len(r.disputes))
	r.state.UpdatedAt = now
	r.updatePhase()
	r.log.Info("Answered dispute", "range", rng, "key", key)
	return nil
}

// Finalize resolves all disputes the relayer failed to answer within the
// response window by slashing it, and drops all updates which can no longer
// be challenged at the given time. Updates with open disputes, and all later
// updates, are kept. It returns the number of finalized updates.
func (r *Registry) Finalize(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalize(now)
}

func (r *Registry) finalize(now time.Time) (int, error) {
	for {
		idx := slices.IndexFunc(r.disputes, func(d Dispute) bool {
			return now.Sub(d.OpenedAt) > r.config.ResponseWindow
		})
		if idx < 0 {
			break
		}
		dispute := r.disputes[idx]
		pos := slices.IndexFunc(r.history, func(u appliedUpdate) bool {
			return u.rng == dispute.Range
		})
		if pos < 0 {
			r.disputes = slices.Delete(r.disputes, idx, idx+1)
			r.state.PendingChallenges = uint8(len(r.disputes))
			continue
		}
		err := r.slash(pos, now, ChallengeRecord{
			Kind:       FraudWithheldKey,
			Key:        dispute.Key,
			Challenger: dispute.Challenger,
		})
		if err != nil {
			return 0, err
		}
	}

	pos := 0
	for pos < len(r.history) {
		u := r.history[pos]
		if now.Sub(u.appliedAt) <= r.config.ChallengeWindow || r.isDisputed(u.rng) {
			break
		}
		pos++
	}
	if pos > 0 {
		r.state.FinalizedBlock = r.history[pos-1].rng.End
		r.history = slices.Delete(r.history, 0, pos)
	}
	return pos, nil
}

func (r *Registry) isDisputed(rng BlockRange) bool {
	return slices.ContainsFunc(r.disputes, func(d Dispute) bool { return d.Range == rng })
}

// updatePhase derives the phase from open disputes and the recovery from the
// latest successful challenge.
func (r *Registry) updatePhase() {
	switch {
	case len(r.disputes) > 0 || r.state.LastSyncedBlock < r.recoveryHeight:
		r.state.Phase = Challenged
	case r.state.SuccessfulUpdates > 0:
		r.state.Phase = Synced
	default:
		r.state.Phase = Initialized
	}
}

// Challengeable returns the ranges of all updates which may still be
// challenged, in order of application.
func (r *Registry) Challengeable() []BlockRange {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]BlockRange, 0, len(r.history))
	for _, u := range r.history {
		res = append(res, u.rng)
	}
	return res
}
