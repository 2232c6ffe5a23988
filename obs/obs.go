// obs.go - Lock-free observability sinks.
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

// Package obs holds the pipeline's observability state: atomic counters,
// coarse byte-length histograms, and a health tri-state.  The package is
// deliberately self-contained and never records identifiers, network
// addresses, clock readings, or payload bytes; a guard test enforces the
// import surface.  The build tags obs_none and obs_dev select the NONE and
// DEV levels; the default build is SAFE.
package obs

import (
	"sync/atomic"
)

// Level is the compiled-in observability level.
type Level int

const (
	// LevelNone compiles every sink down to a no-op.
	LevelNone Level = iota

	// LevelSafe records counters and health only.
	LevelSafe

	// LevelDev additionally enables snapshot export.
	LevelDev
)

// ErrorClass partitions recorded errors.
type ErrorClass int

const (
	// ProtocolViolation covers malformed or illegal protocol input.
	ProtocolViolation ErrorClass = iota

	// TransportIO covers failures of the underlying byte transport.
	TransportIO

	// ResourceLimit covers configured limit breaches.
	ResourceLimit

	// InternalAssert covers states that should be impossible.
	InternalAssert

	errorClassCount
)

// HealthState is the coarse process health.
type HealthState uint8

const (
	// HealthOK means the pipeline is operating normally.
	HealthOK HealthState = iota

	// HealthDegraded means the pipeline is running but impaired.
	HealthDegraded

	// HealthFaulted means the pipeline has stopped making progress.
	HealthFaulted
)

// byteBuckets is the histogram size: bucket 0 counts zero-length events,
// bucket i counts lengths in [2^(i-1), 2^i).
const byteBuckets = 21

var (
	connectionsOpened atomic.Uint64
	connectionsClosed atomic.Uint64
	framesSent        atomic.Uint64
	framesReceived    atomic.Uint64

	bytesSentCoarse     [byteBuckets]atomic.Uint64
	bytesReceivedCoarse [byteBuckets]atomic.Uint64

	errorCounts [errorClassCount]atomic.Uint64
	healthState atomic.Uint32
)

// ConnectionOpened counts one accepted connection.
func ConnectionOpened() {
	if level == LevelNone {
		return
	}
	connectionsOpened.Add(1)
}

// ConnectionClosed counts one closed connection.
func ConnectionClosed() {
	if level == LevelNone {
		return
	}
	connectionsClosed.Add(1)
}

// FrameSent counts one frame written to a transport.
func FrameSent() {
	if level == LevelNone {
		return
	}
	framesSent.Add(1)
}

// FrameReceived counts one frame decoded from a transport.
func FrameReceived() {
	if level == LevelNone {
		return
	}
	framesReceived.Add(1)
}

// BytesSent buckets one outbound write by length.
func BytesSent(byteLen int) {
	if level == LevelNone {
		return
	}
	bytesSentCoarse[bucketIndex(byteLen)].Add(1)
}

// BytesReceived buckets one inbound read by length.
func BytesReceived(byteLen int) {
	if level == LevelNone {
		return
	}
	bytesReceivedCoarse[bucketIndex(byteLen)].Add(1)
}

// RecordError counts one error of the given class.  Unknown classes are
// counted as internal assertion failures.
func RecordError(class ErrorClass) {
	if level == LevelNone {
		return
	}
	if class < 0 || class >= errorClassCount {
		class = InternalAssert
	}
	errorCounts[class].Add(1)
}

// SetHealth publishes the pipeline health.
func SetHealth(state HealthState) {
	if level == LevelNone {
		return
	}
	healthState.Store(uint32(state))
}

// Health returns the published pipeline health.  A value outside the enum
// collapses to HealthFaulted rather than propagating garbage.
func Health() HealthState {
	switch s := HealthState(healthState.Load()); s {
	case HealthOK, HealthDegraded, HealthFaulted:
		return s
	default:
		return HealthFaulted
	}
}

// Bucket 0 counts zero-length events; bucket i covers [2^(i-1), 2^i), so a
// length of 1 lands in bucket 1, not bucket 0.  Lengths past the last
// boundary clamp into the final bucket.
func bucketIndex(byteLen int) int {
	if byteLen <= 0 {
		return 0
	}
	idx := 1
	for byteLen > 1 && idx+1 < byteBuckets {
		byteLen >>= 1
		idx++
	}
	return idx
}
