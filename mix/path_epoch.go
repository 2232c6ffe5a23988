// path_epoch.go - Path epoch rotator.
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
	"encoding/binary"
	"errors"
	mRand "math/rand"
	"time"

	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/blake2b"

	"github.com/alenjiji/ebtunnel/transport"
)

// PathEpoch tracks which egress path the pump writes to and when the
// binding must rotate to a new one.  It is passive data: it holds no
// transport, and only the binding pump mutates it.  All timestamps are
// monotonic durations threaded in by the caller.
type PathEpoch struct {
	paths        []transport.Path
	dist         Distribution
	rng          *mRand.Rand
	nonceSeed    [32]byte
	rotations    uint64
	currentIndex int
	nextRotation time.Duration
	epochNonce   uint64
}

// NewPathEpoch constructs a PathEpoch over the given non-empty path list,
// with the initial index drawn at random and the first rotation scheduled
// relative to now.
func NewPathEpoch(paths []transport.Path, dist Distribution, now time.Duration) (*PathEpoch, error) {
	return NewPathEpochWithRand(paths, dist, rand.NewMath(), now)
}

// NewPathEpochWithRand constructs a PathEpoch around a caller-provided RNG.
// The rotator takes exclusive ownership of rng.
func NewPathEpochWithRand(paths []transport.Path, dist Distribution, rng *mRand.Rand, now time.Duration) (*PathEpoch, error) {
	if len(paths) == 0 {
		return nil, errors.New("mix: path list must not be empty")
	}

	e := &PathEpoch{
		paths:        paths,
		dist:         dist,
		rng:          rng,
		currentIndex: int(rng.Uint64() % uint64(len(paths))),
	}
	for i := range e.nonceSeed {
		e.nonceSeed[i] = byte(rng.Uint64())
	}
	e.reseedNonce()
	e.ScheduleNextRotation(now)
	return e, nil
}

// CurrentPath returns the path the pump should currently be bound to.
func (e *PathEpoch) CurrentPath() transport.Path {
	return e.paths[e.currentIndex]
}

// PathAt returns the path at the given index.
func (e *PathEpoch) PathAt(index int) transport.Path {
	return e.paths[index]
}

// EpochNonce returns the nonce identifying the current path epoch.
func (e *PathEpoch) EpochNonce() uint64 {
	return e.epochNonce
}

// IsDue returns true when the current epoch has elapsed.
func (e *PathEpoch) IsDue(now time.Duration) bool {
	return now >= e.nextRotation
}

// NextIndex selects the index the next epoch should bind to.  With more
// than one path the result is never the current index.
func (e *PathEpoch) NextIndex() int {
	return e.selectNextIndex()
}

// ScheduleNextRotation samples a fresh epoch duration and schedules the
// next rotation relative to now.  A zero sample is coerced to 1ns.
func (e *PathEpoch) ScheduleNextRotation(now time.Duration) {
	duration := e.dist.Sample(e.rng)
	if duration <= 0 {
		duration = 1
	}
	e.nextRotation = now + duration
}

// CommitRotation installs nextIndex as the current path, reseeds the epoch
// nonce, and schedules the following rotation.  The pump calls this after
// it has successfully opened the transport for the new path.
func (e *PathEpoch) CommitRotation(nextIndex int, now time.Duration) {
	e.currentIndex = nextIndex
	e.rotations++
	e.reseedNonce()
	e.ScheduleNextRotation(now)
}

// RotateIfDue rotates to a new path if the epoch has elapsed, returning
// true if a rotation took place.
func (e *PathEpoch) RotateIfDue(now time.Duration) bool {
	if !e.IsDue(now) {
		return false
	}

	e.CommitRotation(e.selectNextIndex(), now)
	return true
}

func (e *PathEpoch) selectNextIndex() int {
	if len(e.paths) == 1 {
		return 0
	}
	idx := int(e.rng.Uint64() % uint64(len(e.paths)))
	if idx == e.currentIndex {
		idx = (idx + 1) % len(e.paths)
	}
	return idx
}

func (e *PathEpoch) reseedNonce() {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], e.rotations)
	binary.BigEndian.PutUint64(buf[8:16], e.rng.Uint64())

	h, _ := blake2b.New256(nil)
	h.Write(e.nonceSeed[:])
	h.Write(buf[:])
	e.epochNonce = binary.BigEndian.Uint64(h.Sum(nil)[:8])
}
