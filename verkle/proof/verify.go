// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proof

import (
	"context"
	"fmt"
	"runtime"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"golang.org/x/sync/errgroup"
)

// Verify checks a proof against an expected root for the given key. It is a
// pure function of its inputs and only needs the verifier key, never the
// tree itself. The steps are:
//
//  1. the first path commitment must be the expected root,
//  2. there must be exactly depth+1 path commitments for the queried key,
//  3. the Fiat-Shamir challenges are recomputed from the proof content,
//  4. the multiproof must pass a single pairing check,
//  5. the terminal decides between Absent and Present.
func Verify(
	vk commit.VerifierKey,
	params Params,
	proof *NonMembershipProof,
	expectedRoot commit.Commitment,
	key common.Key,
) Result {
	if proof == nil || len(proof.PathCommitments) == 0 {
		return invalid(MalformedProof)
	}
	if !proof.PathCommitments[0].Equal(expectedRoot) {
		return invalid(RootMismatch)
	}
	if params.Validate() != nil || len(proof.PathCommitments) != params.Depth+1 {
		return invalid(MalformedProof)
	}
	if proof.QueriedKey != key {
		return invalid(KeyMismatch)
	}

	path := ComputePath(params, key)
	zs, ys := Openings(params, path, proof.PathCommitments, proof.Terminal)
	ok, err := checkMultiproof(vk, params, key, proof.PathCommitments, zs, ys, proof.Multiproof)
	if err != nil || !ok {
		return invalid(BadOpening)
	}

	if proof.Terminal == nil || proof.Terminal.Key != key {
		return Result{Status: Absent}
	}
	return Result{Status: Present}
}

// VerifyEncoded decodes a proof and verifies it. Decoding failures are
// reported as MalformedProof.
func VerifyEncoded(
	vk commit.VerifierKey,
	params Params,
	encoded []byte,
	expectedRoot commit.Commitment,
	key common.Key,
) Result {
	proof, err := Decode(encoded)
	if err != nil {
		return invalid(MalformedProof)
	}
	return Verify(vk, params, proof, expectedRoot, key)
}

// VerifyBatch verifies many proofs against the same root concurrently. The
// i-th proof is checked for the i-th key. Verification shares no mutable
// state, so no locking is involved.
func VerifyBatch(
	ctx context.Context,
	vk commit.VerifierKey,
	params Params,
	proofs []*NonMembershipProof,
	expectedRoot commit.Commitment,
	keys []common.Key,
) ([]Result, error) {
	if len(proofs) != len(keys) {
		return nil, fmt.Errorf("got %d proofs for %d keys", len(proofs), len(keys))
	}
	results := make([]Result, len(proofs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i := range proofs {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Verify(vk, params, proofs[i], expectedRoot, keys[i])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
