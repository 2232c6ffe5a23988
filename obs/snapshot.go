// snapshot.go - Observability snapshot export.
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
	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a point-in-time copy of every counter.  All values are
// monotonic since process start.  Individual fields may be mutually
// inconsistent by a few relaxed-order increments; that is acceptable.
type Snapshot struct {
	ConnectionsOpened uint64 `cbor:"connections_opened"`
	ConnectionsClosed uint64 `cbor:"connections_closed"`
	FramesSent        uint64 `cbor:"frames_sent"`
	FramesReceived    uint64 `cbor:"frames_received"`

	BytesSentCoarse     [byteBuckets]uint64 `cbor:"bytes_sent_coarse"`
	BytesReceivedCoarse [byteBuckets]uint64 `cbor:"bytes_received_coarse"`

	ErrorClassCounts [int(errorClassCount)]uint64 `cbor:"error_class_counts"`
}

// Marshal encodes the snapshot as CBOR.
func (s *Snapshot) Marshal() ([]byte, error) {
	return cbor.Marshal(s)
}

// Take returns a snapshot of the counters, or nil unless the package was
// built at the DEV level.
func Take() *Snapshot {
	if level != LevelDev {
		return nil
	}

	s := &Snapshot{
		ConnectionsOpened: connectionsOpened.Load(),
		ConnectionsClosed: connectionsClosed.Load(),
		FramesSent:        framesSent.Load(),
		FramesReceived:    framesReceived.Load(),
	}
	for i := 0; i < byteBuckets; i++ {
		s.BytesSentCoarse[i] = bytesSentCoarse[i].Load()
		s.BytesReceivedCoarse[i] = bytesReceivedCoarse[i].Load()
	}
	for i := 0; i < int(errorClassCount); i++ {
		s.ErrorClassCounts[i] = errorCounts[i].Load()
	}
	return s
}
