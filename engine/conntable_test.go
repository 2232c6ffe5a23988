// conntable_test.go - Connection table tests.
// Copyright (C) 2025  Alen Jiji.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alenjiji/ebtunnel/wire/commands"
)

const testWindow = 65536

func openConn(t *testing.T, tbl *ConnTable, id uint32) {
	require.NoError(t, tbl.Open(id))
	require.NoError(t, tbl.FinalizeOpen(id))
}

func TestConnLifecycle(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tbl := NewConnTable(testWindow, Limits{})
	require.NoError(tbl.Open(1))
	require.Equal(StateInit, tbl.State(1))

	require.NoError(tbl.FinalizeOpen(1))
	require.Equal(StateOpen, tbl.State(1))

	require.NoError(tbl.Close(1))
	require.Equal(StateClosing, tbl.State(1))

	require.NoError(tbl.FinalizeClose(1))
	require.Equal(StateClosed, tbl.State(1))
}

func TestIllegalTransitions(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tbl := NewConnTable(testWindow, Limits{})
	require.NoError(tbl.Open(1))

	// Init cannot close.
	require.ErrorIs(tbl.Close(1), ErrIllegalTransition)
	require.Equal(StateInit, tbl.State(1), "failed transition must not mutate")

	// Init cannot finalize a close.
	require.ErrorIs(tbl.FinalizeClose(1), ErrIllegalTransition)

	// Double open of the same id.
	require.ErrorIs(tbl.Open(1), ErrIllegalTransition)

	// Operations on absent connections.
	require.ErrorIs(tbl.FinalizeOpen(99), ErrUnknownConn)
	require.ErrorIs(tbl.Close(99), ErrUnknownConn)
}

func TestWindowBounds(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tbl := NewConnTable(testWindow, Limits{})
	openConn(t, tbl, 1)

	require.True(tbl.CanSendData(1, 16384))
	require.NoError(tbl.ConsumeSendCredits(1, 16384))
	require.Equal(uint32(49152), tbl.SendWindow(1))

	// Underflow fails without mutation.
	require.ErrorIs(tbl.ConsumeSendCredits(1, 65536), ErrWindowUnderflow)
	require.Equal(uint32(49152), tbl.SendWindow(1))

	// Credits saturate at twice the initial window.
	require.NoError(tbl.AddSendCredits(1, 4*testWindow))
	require.Equal(uint32(2*testWindow), tbl.SendWindow(1))
}

func TestWindowUpdatePoll(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tbl := NewConnTable(testWindow, Limits{})
	openConn(t, tbl, 1)

	// Scenario: consume to 49152, then drive below one quarter (16384).
	require.NoError(tbl.ConsumeSendCredits(1, 16384))
	require.Equal(uint32(49152), tbl.SendWindow(1))
	require.Empty(tbl.PollControlFrames(), "no update above the threshold")

	require.NoError(tbl.ConsumeSendCredits(1, 40000))
	out := tbl.PollControlFrames()
	require.Len(out, 1, "exactly one WindowUpdate")

	wu, ok := out[0].(*commands.WindowUpdate)
	require.True(ok)
	require.Equal(uint32(1), wu.ConnID)
	require.Equal(uint32(testWindow-9152), wu.Credits)

	// The window is optimistically restored, so a second poll is quiet.
	require.Equal(uint32(testWindow), tbl.SendWindow(1))
	require.Empty(tbl.PollControlFrames())
}

func TestResourceLimits(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tbl := NewConnTable(testWindow, Limits{MaxConnections: 2, MaxInflightOpens: 1, MaxBufferedBytes: 100})

	require.NoError(tbl.Open(1))
	require.ErrorIs(tbl.Open(2), ErrInflightFull, "inflight limit")
	require.NoError(tbl.FinalizeOpen(1))

	require.NoError(tbl.Open(2))
	require.NoError(tbl.FinalizeOpen(2))
	require.ErrorIs(tbl.Open(3), ErrTableFull, "table limit")

	require.NoError(tbl.BufferBytes(1, 60))
	require.ErrorIs(tbl.BufferBytes(1, 50), ErrBufferFull, "buffer limit")
	tbl.ReleaseBytes(1, 60)
	require.NoError(tbl.BufferBytes(1, 100))
}
