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
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"golang.org/x/sync/errgroup"
)

// Prover is a version of the spent-key tree able to produce proofs.
type Prover interface {
	Root() commit.Commitment
	ProveAbsence(key common.Key) (*proof.NonMembershipProof, error)
}

// ProveInsertion creates the insertion proof for an update transforming the
// before version of a tree into the after version by inserting the given keys.
// Proofs are generated concurrently.
func ProveInsertion(ctx context.Context, before, after Prover, keys []common.Key) (InsertionProof, error) {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, common.Key.Compare)
	sorted = slices.Compact(sorted)

	res := InsertionProof{
		OldRoot:      before.Root(),
		NewRoot:      after.Root(),
		KeySetDigest: common.KeySetDigest(sorted),
		Absent:       make([]*proof.NonMembershipProof, len(sorted)),
		Present:      make([]*proof.NonMembershipProof, len(sorted)),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range sorted {
		i, key := i, key
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			absent, err := before.ProveAbsence(key)
			if err != nil {
				return fmt.Errorf("failed to prove absence of %v: %w", key, err)
			}
			present, err := after.ProveAbsence(key)
			if err != nil {
				return fmt.Errorf("failed to prove presence of %v: %w", key, err)
			}
			res.Absent[i] = absent
			res.Present[i] = present
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return InsertionProof{}, err
	}
	return res, nil
}

// ProveFraud creates a fraud proof of the given kind for the update covering
// the given range, which transformed the before version of the tree into the
// after version.
func ProveFraud(kind FraudKind, rng BlockRange, key common.Key, before, after Prover) (FraudProof, error) {
	beforeProof, err := before.ProveAbsence(key)
	if err != nil {
		return FraudProof{}, err
	}
	afterProof, err := after.ProveAbsence(key)
	if err != nil {
		return FraudProof{}, err
	}
	return FraudProof{
		Kind:   kind,
		Range:  rng,
		Key:    key,
		Before: beforeProof,
		After:  afterProof,
	}, nil
}
