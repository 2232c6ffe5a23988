// priority_queue_test.go - Tests for priority queue.
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

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	testEntries := []Entry{
		{Value: []byte("the wrong people have been listening,"), Priority: 0, Nonce: 0},
		{Value: []byte("for far too long,"), Priority: 1, Nonce: 0},
		{Value: []byte("to conversations that were never theirs."), Priority: 2, Nonce: 0},
	}

	q := New()
	// Insert out of order, expect ordered removal.
	for _, i := range []int{2, 0, 1} {
		v := testEntries[i]
		q.Enqueue(v.Priority, v.Nonce, v.Value)
	}
	require.Equal(len(testEntries), q.Len(), "queue length (full)")

	for i, expected := range testEntries {
		require.Equal(len(testEntries)-i, q.Len(), "queue length")

		ent := q.Peek()
		require.Equal(expected.Priority, ent.Priority, "Peek(): priority")

		ent = q.Pop()
		require.Equal(expected.Value, ent.Value, "Pop(): value")
		require.Equal(expected.Priority, ent.Priority, "Pop(): priority")
	}

	require.Equal(0, q.Len(), "queue length (empty)")
	require.Nil(q.Peek(), "Peek() (empty)")
	require.Nil(q.Pop(), "Pop() (empty)")
}

func TestNonceTieBreak(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	q := New()
	q.Enqueue(42, 7, "late")
	q.Enqueue(42, 3, "early")
	q.Enqueue(42, 5, "middle")

	require.Equal("early", q.Pop().Value)
	require.Equal("middle", q.Pop().Value)
	require.Equal("late", q.Pop().Value)
}
