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
	"encoding/binary"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"golang.org/x/crypto/sha3"
)

const (
	rChallenge = "spentset/multiproof/r"
	tChallenge = "spentset/multiproof/t"
)

// transcript derives the two challenges of the multiproof. The first, r,
// binds the queried key, the tree shape, all path commitments and all claimed
// openings. The second, t, additionally binds the aggregated quotient.
type transcript struct {
	fs *fiatshamir.Transcript
}

func newTranscript() *transcript {
	return &transcript{
		fs: fiatshamir.NewTranscript(sha3.NewLegacyKeccak256(), rChallenge, tChallenge),
	}
}

// challengeR computes r over the opening claims. The i-th commitment is
// claimed to open to ys[i] at zs[i].
func (t *transcript) challengeR(
	params Params,
	key common.Key,
	commitments []commit.Commitment,
	zs []field.Scalar,
	ys []field.Scalar,
) (field.Scalar, error) {
	var shape [16]byte
	binary.BigEndian.PutUint64(shape[:8], uint64(params.Width))
	binary.BigEndian.PutUint64(shape[8:], uint64(params.Depth))
	if err := t.fs.Bind(rChallenge, shape[:]); err != nil {
		return field.Scalar{}, err
	}
	if err := t.fs.Bind(rChallenge, key[:]); err != nil {
		return field.Scalar{}, err
	}
	for i, c := range commitments {
		compressed := c.Compress()
		z := zs[i].Bytes()
		y := ys[i].Bytes()
		for _, data := range [][]byte{compressed[:], z[:], y[:]} {
			if err := t.fs.Bind(rChallenge, data); err != nil {
				return field.Scalar{}, err
			}
		}
	}
	return t.compute(rChallenge)
}

// challengeT computes t after binding the aggregated quotient commitment.
func (t *transcript) challengeT(quotient commit.Commitment) (field.Scalar, error) {
	compressed := quotient.Compress()
	if err := t.fs.Bind(tChallenge, compressed[:]); err != nil {
		return field.Scalar{}, err
	}
	return t.compute(tChallenge)
}

func (t *transcript) compute(id string) (field.Scalar, error) {
	digest, err := t.fs.ComputeChallenge(id)
	if err != nil {
		return field.Scalar{}, err
	}
	return field.ScalarFromBytesReduce(digest), nil
}
