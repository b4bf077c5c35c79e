// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package relayer

import (
	"context"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/registry"
)

// LocalSubmitter submits updates to an in-process registry on behalf of the
// given relayer account.
type LocalSubmitter struct {
	Registry *registry.Registry
	Caller   common.Address
	Clock    func() time.Time // < defaults to time.Now
}

func (s *LocalSubmitter) SubmitUpdate(ctx context.Context, update registry.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	return s.Registry.SubmitUpdate(s.Caller, now(), update)
}
