// engine.go - Anonymity protocol engine.
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

// Package engine frames payloads for the anonymity pipeline and tracks
// connection flow control.  The outbound side feeds a single mixing pool
// shared by all producers; there are no per-connection queues on the
// anonymity path, so egress batches carry no per-caller structure.
package engine

import (
	"encoding/binary"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/alenjiji/ebtunnel/core/log"
	"github.com/alenjiji/ebtunnel/mix"
	"github.com/alenjiji/ebtunnel/obs"
	"github.com/alenjiji/ebtunnel/wire"
	"github.com/alenjiji/ebtunnel/wire/commands"
)

// Engine wraps payloads in data frames, buffers them through the outbound
// mixing pool, and reassembles inbound frames from the transport byte
// stream.  The engine is shared between producer contexts and the binding
// pump under its mutex; the pump holds the lock only for the duration of a
// drain, never across I/O.
type Engine struct {
	sync.Mutex

	l *logging.Logger

	version  byte
	pool     *mix.Pool
	conns    *ConnTable
	limits   Limits
	inbound  []byte
	buffered int
}

// New constructs an Engine speaking the given protocol version.
func New(version byte, initialWindow uint32, limits Limits, logBackend *log.Backend) *Engine {
	return NewWithPool(version, initialWindow, limits, mix.NewPool(), logBackend)
}

// NewWithPool constructs an Engine around a caller-provided mixing pool,
// which the tests use to inject a deterministic shuffle source.
func NewWithPool(version byte, initialWindow uint32, limits Limits, pool *mix.Pool, logBackend *log.Backend) *Engine {
	return &Engine{
		l:       logBackend.GetLogger("engine"),
		version: version,
		pool:    pool,
		conns:   NewConnTable(initialWindow, limits),
		limits:  limits,
	}
}

// Conns exposes the connection table for the connection-oriented surface.
// Callers must hold no engine lock; table access is serialized by the
// engine methods below, so direct table use is only safe from a single
// goroutine.
func (e *Engine) Conns() *ConnTable {
	return e.conns
}

// Enqueue wraps payload in a data frame and adds it to the outbound mixing
// pool.  The payload is opaque; nothing downstream will look at it again.
func (e *Engine) Enqueue(payload []byte) error {
	f := &wire.Frame{
		Version: e.version,
		Type:    wire.FrameTypeData,
		Payload: payload,
	}
	b, err := f.ToBytes()
	if err != nil {
		obs.RecordError(obs.ProtocolViolation)
		return err
	}

	e.Lock()
	defer e.Unlock()
	if e.limits.MaxBufferedBytes > 0 && e.buffered+len(b) > e.limits.MaxBufferedBytes {
		obs.RecordError(obs.ResourceLimit)
		return ErrBufferFull
	}
	e.buffered += len(b)
	e.pool.Enqueue(b)
	return nil
}

// DrainBatch pulls up to max ready frames out of the mixing pool for
// downstream delivery.
func (e *Engine) DrainBatch(max int) [][]byte {
	e.Lock()
	defer e.Unlock()
	frames := e.pool.DrainBatch(max)
	for _, f := range frames {
		e.buffered -= len(f)
	}
	if e.buffered < 0 {
		e.buffered = 0
	}
	return frames
}

// OnTransportBytes appends data to the inbound reassembly buffer and
// returns the payload of every complete data frame of the engine's
// protocol version.  Frames of foreign versions or types are discarded
// silently; malformed framing is counted and resynchronized past where
// possible.
func (e *Engine) OnTransportBytes(data []byte) [][]byte {
	e.Lock()
	defer e.Unlock()

	e.inbound = append(e.inbound, data...)

	var payloads [][]byte
	for {
		f, n, err := wire.FromBytes(e.inbound)
		switch err {
		case nil:
		case wire.ErrTruncated:
			return payloads
		case wire.ErrUnknownFrameType:
			obs.RecordError(obs.ProtocolViolation)
			// The length field is intact, so skip the frame body and
			// keep decoding.
			if skip, ok := wire.EncodedLength(e.inbound); ok && skip <= len(e.inbound) {
				e.inbound = e.inbound[skip:]
				continue
			}
			e.inbound = nil
			return payloads
		default:
			// Oversize or undersize length: the stream cannot be
			// trusted past this point.
			obs.RecordError(obs.ProtocolViolation)
			e.l.Warningf("inbound framing violation: %v", err)
			e.inbound = nil
			return payloads
		}

		e.inbound = e.inbound[n:]
		obs.FrameReceived()
		obs.BytesReceived(n)

		if f.Version != e.version || f.Type != wire.FrameTypeData {
			continue
		}
		payloads = append(payloads, f.Payload)
	}
}

// SendData encodes a connection-oriented data frame, consuming send
// credits.  The returned bytes are ready for the transport.
func (e *Engine) SendData(connID uint32, data []byte) ([]byte, error) {
	e.Lock()
	defer e.Unlock()

	if err := e.conns.ConsumeSendCredits(connID, uint32(len(data))); err != nil {
		return nil, err
	}

	payload := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(payload[0:4], connID)
	copy(payload[4:], data)

	f := &wire.Frame{
		Version: e.version,
		Type:    wire.FrameTypeData,
		Payload: payload,
	}
	b, err := f.ToBytes()
	if err != nil {
		obs.RecordError(obs.ProtocolViolation)
		return nil, err
	}
	return b, nil
}

// SendControl encodes a control command into a control frame.
func (e *Engine) SendControl(cmd commands.Command) ([]byte, error) {
	f := &wire.Frame{
		Version: e.version,
		Type:    wire.FrameTypeControl,
		Payload: cmd.ToBytes(),
	}
	b, err := f.ToBytes()
	if err != nil {
		obs.RecordError(obs.ProtocolViolation)
		return nil, err
	}
	return b, nil
}

// PollControlFrames returns the encoded control frames the flow-control
// machinery wants on the wire, currently WindowUpdates for starved
// windows.
func (e *Engine) PollControlFrames() ([][]byte, error) {
	e.Lock()
	defer e.Unlock()

	cmds := e.conns.PollControlFrames()
	out := make([][]byte, 0, len(cmds))
	for _, cmd := range cmds {
		f := &wire.Frame{
			Version: e.version,
			Type:    wire.FrameTypeControl,
			Payload: cmd.ToBytes(),
		}
		b, err := f.ToBytes()
		if err != nil {
			obs.RecordError(obs.InternalAssert)
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
