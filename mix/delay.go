// delay.go - Randomized release delay queue.
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

	"github.com/katzenpost/hpqc/rand"
)

var errStoreEmpty = errors.New("mix: pending store is empty")

// DelayQueue defers each frame's release by a random interval drawn from
// its distribution.  Entries are ordered by (readyAt, nonce); the random
// nonce orders frames that share a release instant independently of
// insertion order.  All timestamps are monotonic durations threaded in by
// the caller, which is what lets a test harness drive the queue with a
// simulated clock.  The queue is single-owner and not safe for concurrent
// use.
type DelayQueue struct {
	dist    Distribution
	rng     *mRand.Rand
	pending pendingStore
	ready   [][]byte
}

// NewDelayQueue constructs a DelayQueue with an in-memory pending store and
// a CSPRNG-backed RNG.
func NewDelayQueue(dist Distribution) *DelayQueue {
	return NewDelayQueueWithRand(dist, rand.NewMath())
}

// NewDelayQueueWithRand constructs a DelayQueue around a caller-provided
// RNG.  The queue takes exclusive ownership of rng.
func NewDelayQueueWithRand(dist Distribution, rng *mRand.Rand) *DelayQueue {
	return &DelayQueue{
		dist:    dist,
		rng:     rng,
		pending: newMemoryPending(),
	}
}

// NewPersistentDelayQueue constructs a DelayQueue whose pending frames are
// spooled to a bolt database at dbPath rather than held in memory.
func NewPersistentDelayQueue(dist Distribution, dbPath string) (*DelayQueue, error) {
	store, err := newBoltPending(dbPath)
	if err != nil {
		return nil, err
	}
	return &DelayQueue{
		dist:    dist,
		rng:     rand.NewMath(),
		pending: store,
	}, nil
}

// EnqueueAt schedules frame for release at now plus a sampled delay.  A
// zero sample is coerced to 1ns so the release time is strictly after now.
func (q *DelayQueue) EnqueueAt(now time.Duration, frame []byte) error {
	delay := q.dist.Sample(q.rng)
	if delay <= 0 {
		delay = 1
	}
	readyAt := now + delay
	nonce := q.rng.Uint64()
	return q.pending.Push(uint64(readyAt), nonce, frame)
}

// DrainReadyAt migrates every frame whose release time has arrived into the
// ready buffer, shuffling each migrated batch, then returns up to max
// frames from the front of the buffer.  Frames beyond max stay buffered in
// FIFO order for subsequent calls.  DrainReadyAt(now, 0) returns nothing
// and leaves all state untouched.
func (q *DelayQueue) DrainReadyAt(now time.Duration, max int) ([][]byte, error) {
	if max <= 0 {
		return nil, nil
	}

	if err := q.collectReady(now); err != nil {
		return nil, err
	}

	n := max
	if n > len(q.ready) {
		n = len(q.ready)
	}
	if n == 0 {
		return nil, nil
	}

	drained := make([][]byte, n)
	copy(drained, q.ready[:n])
	for i := 0; i < n; i++ {
		q.ready[i] = nil
	}
	q.ready = q.ready[n:]
	return drained, nil
}

// Len returns the number of frames held, pending and ready combined.
func (q *DelayQueue) Len() int {
	return q.pending.Len() + len(q.ready)
}

// Close releases the pending store.
func (q *DelayQueue) Close() error {
	return q.pending.Close()
}

func (q *DelayQueue) collectReady(now time.Duration) error {
	var batch [][]byte
	for {
		readyAt, ok := q.pending.Peek()
		if !ok || readyAt > uint64(now) {
			break
		}
		frame, err := q.pending.Pop()
		if err != nil {
			return err
		}
		batch = append(batch, frame)
	}

	if len(batch) == 0 {
		return nil
	}

	// The shuffle is the point: within a release instant, egress order
	// carries no information about ingress order.
	q.rng.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})
	q.ready = append(q.ready, batch...)
	return nil
}
