// correlation.go - Correlation statistics.
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
	"math"
	"sort"
)

// Pearson returns the Pearson correlation coefficient of the two series.
// Degenerate series (zero variance) correlate to 0.  The series must be of
// equal length.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) {
		panic("regression: series length mismatch")
	}

	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var num, denomX, denomY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		num += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}
	if denomX == 0 || denomY == 0 {
		return 0
	}
	return num / (math.Sqrt(denomX) * math.Sqrt(denomY))
}

// SpearmanRank returns the Spearman rank correlation coefficient of the two
// series: the Pearson correlation of their fractional ranks.
func SpearmanRank(xs, ys []float64) float64 {
	return Pearson(ranks(xs), ranks(ys))
}

func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return xs[idx[i]] < xs[idx[j]]
	})

	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		// Ties share the mean of the ranks they span.
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		mean := float64(i+j) / 2
		for k := i; k <= j; k++ {
			out[idx[k]] = mean
		}
		i = j + 1
	}
	return out
}
