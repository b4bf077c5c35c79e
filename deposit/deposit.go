// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package deposit implements the admission check for deposits on the
// smart-contract platform. A deposit is admitted if its ownership proof is
// valid, its key image is proven to be absent from the spent set at the
// current registry root, and the key image has not been claimed before.
package deposit

//go:generate mockgen -source deposit.go -destination deposit_mocks.go -package deposit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrOwnershipRejected = errors.New("ownership proof rejected")
	ErrStaleProof        = errors.New("proof is not anchored at the current root")
	ErrInvalidProof      = errors.New("invalid non-membership proof")
	ErrKeyImageSpent     = errors.New("key image is spent")
	ErrAlreadyClaimed    = errors.New("key image already claimed")
)

// OwnershipVerifier checks the ownership proof of a deposit, e.g. a ring
// signature, for the given key image.
type OwnershipVerifier interface {
	Verify(ctx context.Context, keyImage common.Key, ownership []byte) (bool, error)
}

// Registry provides the currently accepted root of the spent-key tree. It is
// implemented by *registry.Registry.
type Registry interface {
	Root() commit.Commitment
	Params() proof.Params
	VerifierKey() commit.VerifierKey
}

// Gate admits deposits. It is safe for concurrent use.
type Gate struct {
	ownership OwnershipVerifier
	registry  Registry
	log       log.Logger

	mutex   sync.Mutex
	claimed map[common.Key]struct{}
}

func NewGate(ownership OwnershipVerifier, registry Registry) *Gate {
	return &Gate{
		ownership: ownership,
		registry:  registry,
		log:       log.New("module", "deposit"),
		claimed:   map[common.Key]struct{}{},
	}
}

// Admit decides whether a deposit of the given key image may be credited.
// The ownership proof is checked first, the encoded non-membership proof is
// verified against the current registry root second. On success, the key
// image is recorded as claimed and any further deposit of it is refused.
func (g *Gate) Admit(ctx context.Context, keyImage common.Key, ownership []byte, encodedProof []byte) error {
	ok, err := g.ownership.Verify(ctx, keyImage, ownership)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOwnershipRejected, err)
	}
	if !ok {
		return ErrOwnershipRejected
	}

	res := proof.VerifyEncoded(g.registry.VerifierKey(), g.registry.Params(), encodedProof, g.registry.Root(), keyImage)
	switch {
	case res.Status == proof.Present:
		return ErrKeyImageSpent
	case res.Reason == proof.RootMismatch:
		return ErrStaleProof
	case !res.IsValid():
		return fmt.Errorf("%w: %v", ErrInvalidProof, res.Reason)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	if _, found := g.claimed[keyImage]; found {
		return ErrAlreadyClaimed
	}
	g.claimed[keyImage] = struct{}{}
	g.log.Info("Admitted deposit", "key", keyImage)
	return nil
}

// IsClaimed reports whether a deposit of the given key image was admitted.
func (g *Gate) IsClaimed(keyImage common.Key) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	_, found := g.claimed[keyImage]
	return found
}
