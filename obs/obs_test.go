// obs_test.go - Observability sink tests.
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

package obs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketIndex(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cases := []struct {
		byteLen int
		bucket  int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{7, 3},
		{8, 4},
		{1023, 10},
		{1024, 11},
		{1 << 19, 20},
		{1 << 20, 20}, // clamps to the last bucket
		{1 << 25, 20},
	}
	for _, c := range cases {
		require.Equal(c.bucket, bucketIndex(c.byteLen), "byteLen=%d", c.byteLen)
	}
}

func TestCountersMonotonic(t *testing.T) {
	require := require.New(t)

	if level == LevelNone {
		t.Skip("sinks compiled out")
	}

	before := framesSent.Load()
	FrameSent()
	FrameSent()
	require.Equal(before+2, framesSent.Load())

	beforeErr := errorCounts[TransportIO].Load()
	RecordError(TransportIO)
	require.Equal(beforeErr+1, errorCounts[TransportIO].Load())

	// Out-of-range classes land on InternalAssert instead of panicking.
	beforeAssert := errorCounts[InternalAssert].Load()
	RecordError(ErrorClass(99))
	require.Equal(beforeAssert+1, errorCounts[InternalAssert].Load())
}

func TestHealthCollapse(t *testing.T) {
	require := require.New(t)

	if level == LevelNone {
		t.Skip("sinks compiled out")
	}

	SetHealth(HealthOK)
	require.Equal(HealthOK, Health())

	SetHealth(HealthDegraded)
	require.Equal(HealthDegraded, Health())

	// A byte outside the enum must collapse to FAULTED.
	healthState.Store(42)
	require.Equal(HealthFaulted, Health())

	SetHealth(HealthOK)
}

func TestSnapshotGating(t *testing.T) {
	require := require.New(t)

	s := Take()
	if level != LevelDev {
		require.Nil(s, "snapshot must be nil below DEV")
		return
	}

	require.NotNil(s)
	FrameReceived()
	s2 := Take()
	require.Greater(s2.FramesReceived, s.FramesReceived-1)

	b, err := s2.Marshal()
	require.NoError(err)
	require.NotEmpty(b)
}
