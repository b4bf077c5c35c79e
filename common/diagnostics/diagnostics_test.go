// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package diagnostics

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestWrap_StartsRequestedDiagnostics(t *testing.T) {
	dir := t.TempDir()
	called := false
	action := func(*cli.Context) error {
		require.FileExists(t, filepath.Join(dir, "cpu.profile"))
		require.FileExists(t, filepath.Join(dir, "trace.out"))

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://localhost:6061/debug/pprof/")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 10*time.Second, 50*time.Millisecond)

		called = true
		return nil
	}

	app := &cli.App{
		Action: Wrap(action),
		Flags:  Flags(),
	}
	args := []string{"cmd",
		"--" + PortFlag.Name, "6061",
		"--" + CpuProfileFlag.Name, filepath.Join(dir, "cpu.profile"),
		"--" + TraceFlag.Name, filepath.Join(dir, "trace.out"),
	}
	require.NoError(t, app.RunContext(context.Background(), args))
	require.True(t, called, "action should be called")
}

func TestWrap_WithoutFlags_OnlyRunsAction(t *testing.T) {
	called := false
	app := &cli.App{
		Action: Wrap(func(*cli.Context) error {
			called = true
			return nil
		}),
		Flags: Flags(),
	}
	require.NoError(t, app.RunContext(context.Background(), []string{"cmd"}))
	require.True(t, called)
}

func TestWrap_FailsForUncreatableProfile(t *testing.T) {
	app := &cli.App{
		Action: Wrap(func(*cli.Context) error {
			t.Fatal("action must not be called")
			return nil
		}),
		Flags: Flags(),
	}
	missing := filepath.Join(t.TempDir(), "missing", "cpu.profile")
	err := app.RunContext(context.Background(), []string{"cmd", "--" + CpuProfileFlag.Name, missing})
	require.Error(t, err)
}
