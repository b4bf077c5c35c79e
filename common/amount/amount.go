// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package amount

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow        = errors.New("amount overflow")
	ErrUnderflow       = errors.New("amount underflow")
	ErrInvalidFraction = errors.New("invalid fraction")
)

// Amount is a 256-bit unsigned quantity of collateral. The zero value is a
// valid amount of zero units.
type Amount struct {
	internal uint256.Int
}

// New creates an amount from a single uint64 value.
func New(value uint64) Amount {
	return Amount{internal: *uint256.NewInt(value)}
}

// NewFromUint256 creates an amount from a uint256 value. A nil input yields
// zero.
func NewFromUint256(value *uint256.Int) Amount {
	if value == nil {
		return Amount{}
	}
	return Amount{internal: *value}
}

// Uint256 returns a copy of the amount as a uint256 value.
func (a Amount) Uint256() *uint256.Int {
	res := a.internal
	return &res
}

// Uint64 returns the lower 64 bits of the amount.
func (a Amount) Uint64() uint64 {
	return a.internal.Uint64()
}

func (a Amount) IsZero() bool {
	return a.internal.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.internal.Cmp(&b.internal)
}

// Add returns a + b or an error if the result does not fit into 256 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var res Amount
	if _, overflow := res.internal.AddOverflow(&a.internal, &b.internal); overflow {
		return Amount{}, ErrOverflow
	}
	return res, nil
}

// Sub returns a - b or an error if b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var res Amount
	if _, underflow := res.internal.SubOverflow(&a.internal, &b.internal); underflow {
		return Amount{}, ErrUnderflow
	}
	return res, nil
}

// Fraction is a ratio Numerator/Denominator in the range [0, 1].
type Fraction struct {
	Numerator   uint64 `yaml:"numerator"`
	Denominator uint64 `yaml:"denominator"`
}

// Percent is a convenience constructor for a fraction with denominator 100.
func Percent(p uint64) Fraction {
	return Fraction{Numerator: p, Denominator: 100}
}

// Validate checks that the fraction is well formed and at most one.
func (f Fraction) Validate() error {
	if f.Denominator == 0 || f.Numerator > f.Denominator {
		return fmt.Errorf("%w: %d/%d", ErrInvalidFraction, f.Numerator, f.Denominator)
	}
	return nil
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// Scale returns floor(a * f). The fraction must be valid.
func (a Amount) Scale(f Fraction) (Amount, error) {
	if err := f.Validate(); err != nil {
		return Amount{}, err
	}
	var res Amount
	num := uint256.NewInt(f.Numerator)
	den := uint256.NewInt(f.Denominator)
	if _, overflow := res.internal.MulDivOverflow(&a.internal, num, den); overflow {
		return Amount{}, ErrOverflow
	}
	return res, nil
}

func (a Amount) String() string {
	return a.internal.Dec()
}
