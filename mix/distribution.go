// distribution.go - Release time distributions.
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

package mix

import (
	"errors"
	mRand "math/rand"
	"time"
)

// Distribution produces the random intervals that drive frame release and
// path epoch rotation.  Implementations must never return a negative
// duration; callers coerce a zero sample to 1ns so that release times stay
// strictly in the future.
type Distribution interface {
	// Sample draws one interval using the caller-owned RNG.
	Sample(rng *mRand.Rand) time.Duration
}

// Uniform samples uniformly from [min, max], inclusive on both ends.
type Uniform struct {
	minNS uint64
	maxNS uint64
}

// NewUniform constructs a Uniform distribution over [min, max].  The minimum
// must be strictly positive and the maximum must not be below the minimum.
func NewUniform(min, max time.Duration) (*Uniform, error) {
	if min <= 0 {
		return nil, errors.New("mix: minimum interval must be > 0")
	}
	if max < min {
		return nil, errors.New("mix: maximum interval must be >= minimum")
	}
	return &Uniform{
		minNS: uint64(min.Nanoseconds()),
		maxNS: uint64(max.Nanoseconds()),
	}, nil
}

// Sample draws one interval using the caller-owned RNG.
func (u *Uniform) Sample(rng *mRand.Rand) time.Duration {
	span := u.maxNS - u.minNS
	var offset uint64
	if span > 0 {
		offset = rng.Uint64() % (span + 1)
	}
	return time.Duration(u.minNS + offset)
}
