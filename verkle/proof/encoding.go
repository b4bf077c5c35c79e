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
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/ethereum/go-ethereum/rlp"
)

var ErrMalformedEncoding = errors.New("malformed proof encoding")

// MaxPathCommitments bounds the number of commitments accepted while
// decoding. It covers the deepest supported tree (width 2, depth 256).
const MaxPathCommitments = 257

// encodedProof is the RLP layout of a proof. All group elements are in
// compressed form and scalars are 32-byte big-endian.
type encodedProof struct {
	PathCommitments [][field.PointSize]byte
	Proof           [field.PointSize]byte
	Quotient        [field.PointSize]byte
	EvaluationPoint [field.ScalarSize]byte
	Terminal        *encodedTerminal `rlp:"nil"`
	QueriedKey      common.Key
}

type encodedTerminal struct {
	Key   common.Key
	Value common.Value
}

// Encode serializes a proof into its canonical RLP encoding.
func Encode(proof *NonMembershipProof) ([]byte, error) {
	enc := encodedProof{
		PathCommitments: make([][field.PointSize]byte, len(proof.PathCommitments)),
		Proof:           proof.Multiproof.Proof.Compress(),
		Quotient:        proof.Multiproof.Quotient.Compress(),
		EvaluationPoint: proof.Multiproof.EvaluationPoint.Bytes(),
		QueriedKey:      proof.QueriedKey,
	}
	for i, c := range proof.PathCommitments {
		enc.PathCommitments[i] = c.Compress()
	}
	if proof.Terminal != nil {
		enc.Terminal = &encodedTerminal{Key: proof.Terminal.Key, Value: proof.Terminal.Value}
	}
	return rlp.EncodeToBytes(&enc)
}

// Decode parses an encoded proof. Any deviation from the canonical encoding,
// including trailing bytes, non-canonical group elements and scalars, is
// rejected.
func Decode(data []byte) (*NonMembershipProof, error) {
	var enc encodedProof
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if len(enc.PathCommitments) == 0 || len(enc.PathCommitments) > MaxPathCommitments {
		return nil, fmt.Errorf("%w: %d path commitments", ErrMalformedEncoding, len(enc.PathCommitments))
	}

	res := &NonMembershipProof{
		PathCommitments: make([]commit.Commitment, len(enc.PathCommitments)),
		QueriedKey:      enc.QueriedKey,
	}
	for i, raw := range enc.PathCommitments {
		raw := raw
		c, err := commit.Decompress(raw[:])
		if err != nil {
			return nil, fmt.Errorf("%w: path commitment %d: %v", ErrMalformedEncoding, i, err)
		}
		res.PathCommitments[i] = c
	}
	var err error
	if res.Multiproof.Proof, err = commit.Decompress(enc.Proof[:]); err != nil {
		return nil, fmt.Errorf("%w: opening proof: %v", ErrMalformedEncoding, err)
	}
	if res.Multiproof.Quotient, err = commit.Decompress(enc.Quotient[:]); err != nil {
		return nil, fmt.Errorf("%w: quotient: %v", ErrMalformedEncoding, err)
	}
	if res.Multiproof.EvaluationPoint, err = field.ScalarFromBytes(enc.EvaluationPoint[:]); err != nil {
		return nil, fmt.Errorf("%w: evaluation point: %v", ErrMalformedEncoding, err)
	}
	if enc.Terminal != nil {
		res.Terminal = &Terminal{Key: enc.Terminal.Key, Value: enc.Terminal.Value}
	}
	return res, nil
}
