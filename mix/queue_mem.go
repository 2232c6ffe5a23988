// queue_mem.go - In-memory pending frame store.
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
	"github.com/alenjiji/ebtunnel/core/queue"
)

// pendingStore holds frames awaiting their release time, ordered by
// (readyAt, nonce).  Implementations are single-owner; the delay queue
// serializes all access.
type pendingStore interface {
	// Push inserts a frame with the given release priority and tie-break
	// nonce.
	Push(readyAt, nonce uint64, frame []byte) error

	// Peek returns the smallest release priority without removing the
	// entry.  ok is false when the store is empty.
	Peek() (readyAt uint64, ok bool)

	// Pop removes and returns the frame with the smallest (readyAt,
	// nonce) pair.
	Pop() ([]byte, error)

	// Len returns the number of stored frames.
	Len() int

	// Close releases any resources held by the store.
	Close() error
}

type memoryPending struct {
	q *queue.PriorityQueue
}

func newMemoryPending() *memoryPending {
	return &memoryPending{q: queue.New()}
}

func (m *memoryPending) Push(readyAt, nonce uint64, frame []byte) error {
	m.q.Enqueue(readyAt, nonce, frame)
	return nil
}

func (m *memoryPending) Peek() (uint64, bool) {
	e := m.q.Peek()
	if e == nil {
		return 0, false
	}
	return e.Priority, true
}

func (m *memoryPending) Pop() ([]byte, error) {
	e := m.q.Pop()
	if e == nil {
		return nil, errStoreEmpty
	}
	return e.Value.([]byte), nil
}

func (m *memoryPending) Len() int {
	return m.q.Len()
}

func (m *memoryPending) Close() error {
	return nil
}
