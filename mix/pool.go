// pool.go - Two-epoch mixing pool.
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

// Package mix implements the anonymity stages of the forwarding pipeline:
// the epoch batching mixing pool, the randomized delay queue, and the path
// epoch rotator.  Frames are opaque byte slices throughout; nothing in this
// package inspects their contents.
package mix

import (
	mRand "math/rand"

	"github.com/katzenpost/hpqc/rand"
)

// Pool is a two-epoch batch shuffler.  Frames enqueue into the next epoch
// and can only drain after an epoch rotation, so a frame never leaves in
// the cohort it arrived with still forming.  The pool is not safe for
// concurrent use; the owner serializes access.
type Pool struct {
	currentEpoch [][]byte
	nextEpoch    [][]byte
	rng          *mRand.Rand
}

// NewPool constructs a Pool with a CSPRNG-backed shuffle source.
func NewPool() *Pool {
	return NewPoolWithRand(rand.NewMath())
}

// NewPoolWithRand constructs a Pool around a caller-provided RNG.  The pool
// takes exclusive ownership of rng.
func NewPoolWithRand(rng *mRand.Rand) *Pool {
	return &Pool{rng: rng}
}

// Enqueue appends the frame to the next epoch.
func (p *Pool) Enqueue(frame []byte) {
	p.nextEpoch = append(p.nextEpoch, frame)
}

// Len returns the number of frames buffered across both epochs.
func (p *Pool) Len() int {
	return len(p.currentEpoch) + len(p.nextEpoch)
}

// DrainBatch removes and returns up to max frames, in post-shuffle order.
// When the current epoch is exhausted and the next epoch holds frames, the
// epochs are swapped and the new current epoch is shuffled uniformly, so a
// single call can span an epoch boundary.  DrainBatch(0) returns nothing
// and leaves the pool untouched.
func (p *Pool) DrainBatch(max int) [][]byte {
	if max <= 0 {
		return nil
	}

	var drained [][]byte
	for len(drained) < max {
		if len(p.currentEpoch) == 0 {
			if len(p.nextEpoch) == 0 {
				break
			}
			p.rotateEpoch()
		}

		n := len(p.currentEpoch) - 1
		drained = append(drained, p.currentEpoch[n])
		p.currentEpoch[n] = nil
		p.currentEpoch = p.currentEpoch[:n]
	}

	return drained
}

func (p *Pool) rotateEpoch() {
	p.currentEpoch, p.nextEpoch = p.nextEpoch, p.currentEpoch
	p.rng.Shuffle(len(p.currentEpoch), func(i, j int) {
		p.currentEpoch[i], p.currentEpoch[j] = p.currentEpoch[j], p.currentEpoch[i]
	})
}
