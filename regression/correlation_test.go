// correlation_test.go - Correlation statistic tests.
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

package regression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPearson(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	xs := []float64{1, 2, 3, 4, 5}
	require.InDelta(1.0, Pearson(xs, xs), 1e-12, "perfect positive")

	ys := []float64{5, 4, 3, 2, 1}
	require.InDelta(-1.0, Pearson(xs, ys), 1e-12, "perfect negative")

	flat := []float64{7, 7, 7, 7, 7}
	require.Zero(Pearson(xs, flat), "degenerate series")

	require.Panics(func() { Pearson(xs, xs[:2]) }, "length mismatch")
}

func TestSpearmanRank(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// Monotone but nonlinear: Spearman sees a perfect relationship where
	// Pearson does not.
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{1, 8, 27, 64, 125}
	require.InDelta(1.0, SpearmanRank(xs, ys), 1e-12)
	require.Less(Pearson(xs, ys), 1.0)

	rev := []float64{125, 64, 27, 8, 1}
	require.InDelta(-1.0, SpearmanRank(xs, rev), 1e-12)
}

func TestSpearmanTies(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// Tied values share their mean rank; a series tied against itself
	// still correlates to 1.
	xs := []float64{1, 2, 2, 3}
	require.InDelta(1.0, SpearmanRank(xs, xs), 1e-12)
}

func TestDeterministicRNG(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	a := NewRand(12345)
	b := NewRand(12345)
	for i := 0; i < 100; i++ {
		require.Equal(a.Uint64(), b.Uint64(), "same seed, same sequence")
	}

	c := NewRand(54321)
	diverged := false
	d := NewRand(12345)
	for i := 0; i < 100; i++ {
		if c.Uint64() != d.Uint64() {
			diverged = true
			break
		}
	}
	require.True(diverged, "different seeds must diverge")
}
