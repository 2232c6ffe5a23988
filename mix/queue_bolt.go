// queue_bolt.go - BoltDB pending frame store.
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

	bolt "go.etcd.io/bbolt"
)

const (
	boltPendingBucket  = "pending"
	boltPendingKeySize = 8 + 8
)

// boltPending spools pending frames to disk.  Bolt iterates keys in
// byte-sorted order, so `readyAt || nonce` as the key gives the same
// (readyAt, nonce) ordering the in-memory heap provides.  Access is
// single-owner (the delay queue), so there is no locking beyond bolt's
// own.
type boltPending struct {
	db    *bolt.DB
	count int
}

func newBoltPending(dbPath string) (*boltPending, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &boltPending{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(boltPendingBucket))
		if err != nil {
			return err
		}
		// Frames left over from a previous run still count.
		s.count = bkt.Stats().KeyN
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *boltPending) Push(readyAt, nonce uint64, frame []byte) error {
	var key [boltPendingKeySize]byte
	binary.BigEndian.PutUint64(key[0:8], readyAt)
	binary.BigEndian.PutUint64(key[8:16], nonce)

	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(boltPendingBucket))
		return bkt.Put(key[:], frame)
	})
	if err != nil {
		return err
	}
	s.count++
	return nil
}

func (s *boltPending) Peek() (uint64, bool) {
	var readyAt uint64
	var ok bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(boltPendingBucket))
		cur := bkt.Cursor()
		if k, _ := cur.First(); k != nil {
			readyAt = binary.BigEndian.Uint64(k[0:8])
			ok = true
		}
		return nil
	})
	return readyAt, ok
}

func (s *boltPending) Pop() ([]byte, error) {
	var frame []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(boltPendingBucket))
		cur := bkt.Cursor()
		k, v := cur.First()
		if k == nil {
			return errStoreEmpty
		}
		frame = make([]byte, len(v))
		copy(frame, v)
		return bkt.Delete(k)
	})
	if err != nil {
		return nil, err
	}
	s.count--
	return frame, nil
}

func (s *boltPending) Len() int {
	return s.count
}

func (s *boltPending) Close() error {
	return s.db.Close()
}
