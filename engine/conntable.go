// conntable.go - Connection table and credit windows.
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

package engine

import (
	"errors"

	"github.com/alenjiji/ebtunnel/obs"
	"github.com/alenjiji/ebtunnel/wire/commands"
)

var (
	// ErrTableFull is returned when the connection table is at capacity.
	ErrTableFull = errors.New("engine: connection table full")

	// ErrInflightFull is returned when too many opens are in flight.
	ErrInflightFull = errors.New("engine: inflight opens full")

	// ErrBufferFull is returned when a connection's buffer allowance, or
	// the engine-wide outbound buffer allowance, is exhausted.
	ErrBufferFull = errors.New("engine: buffered byte limit reached")

	// ErrUnknownConn is returned for operations on absent connections.
	ErrUnknownConn = errors.New("engine: unknown connection")

	// ErrIllegalTransition is returned for state machine violations.
	ErrIllegalTransition = errors.New("engine: illegal state transition")

	// ErrConnNotOpen is returned when data operations hit a connection
	// that is not in the Open state.
	ErrConnNotOpen = errors.New("engine: connection not open")

	// ErrWindowUnderflow is returned when a consume would drive the send
	// window negative.
	ErrWindowUnderflow = errors.New("engine: send window underflow")
)

// ConnState is a connection's lifecycle state.
type ConnState int

const (
	// StateInit is a connection whose open has not been finalized.
	StateInit ConnState = iota

	// StateOpen is an established connection.
	StateOpen

	// StateClosing is a connection whose close has been requested.
	StateClosing

	// StateClosed is a fully torn down connection.
	StateClosed
)

// Limits bounds the resources a peer can pin.
type Limits struct {
	MaxConnections   int
	MaxInflightOpens int
	MaxBufferedBytes int
}

type connEntry struct {
	state         ConnState
	sendWindow    uint32
	initialWindow uint32
	bufferedBytes int
}

// ConnTable tracks per-connection state and flow-control credit windows.
// It is not safe for concurrent use; the owning Engine serializes access.
type ConnTable struct {
	limits        Limits
	initialWindow uint32
	conns         map[uint32]*connEntry
	inflightOpens int
}

// NewConnTable constructs a ConnTable with the given per-connection initial
// window and resource limits.
func NewConnTable(initialWindow uint32, limits Limits) *ConnTable {
	return &ConnTable{
		limits:        limits,
		initialWindow: initialWindow,
		conns:         make(map[uint32]*connEntry),
	}
}

// Open admits a new connection in the Init state.  Limit breaches are
// counted and leave the table unchanged.
func (t *ConnTable) Open(connID uint32) error {
	if _, ok := t.conns[connID]; ok {
		obs.RecordError(obs.ProtocolViolation)
		return ErrIllegalTransition
	}
	if t.limits.MaxConnections > 0 && len(t.conns) >= t.limits.MaxConnections {
		obs.RecordError(obs.ResourceLimit)
		return ErrTableFull
	}
	if t.limits.MaxInflightOpens > 0 && t.inflightOpens >= t.limits.MaxInflightOpens {
		obs.RecordError(obs.ResourceLimit)
		return ErrInflightFull
	}

	t.conns[connID] = &connEntry{
		state:         StateInit,
		sendWindow:    t.initialWindow,
		initialWindow: t.initialWindow,
	}
	t.inflightOpens++
	return nil
}

// FinalizeOpen moves a connection from Init to Open.
func (t *ConnTable) FinalizeOpen(connID uint32) error {
	c, ok := t.conns[connID]
	if !ok {
		obs.RecordError(obs.ProtocolViolation)
		return ErrUnknownConn
	}
	if c.state != StateInit {
		obs.RecordError(obs.ProtocolViolation)
		return ErrIllegalTransition
	}
	c.state = StateOpen
	t.inflightOpens--
	obs.ConnectionOpened()
	return nil
}

// Close moves a connection from Open to Closing.
func (t *ConnTable) Close(connID uint32) error {
	c, ok := t.conns[connID]
	if !ok {
		obs.RecordError(obs.ProtocolViolation)
		return ErrUnknownConn
	}
	if c.state != StateOpen {
		obs.RecordError(obs.ProtocolViolation)
		return ErrIllegalTransition
	}
	c.state = StateClosing
	return nil
}

// FinalizeClose moves a connection from Closing to Closed and releases its
// table entry.
func (t *ConnTable) FinalizeClose(connID uint32) error {
	c, ok := t.conns[connID]
	if !ok {
		obs.RecordError(obs.ProtocolViolation)
		return ErrUnknownConn
	}
	if c.state != StateClosing {
		obs.RecordError(obs.ProtocolViolation)
		return ErrIllegalTransition
	}
	c.state = StateClosed
	delete(t.conns, connID)
	obs.ConnectionClosed()
	return nil
}

// State returns the connection's state, or StateClosed for an unknown
// connection.
func (t *ConnTable) State(connID uint32) ConnState {
	if c, ok := t.conns[connID]; ok {
		return c.state
	}
	return StateClosed
}

// SendWindow returns the connection's current send window.
func (t *ConnTable) SendWindow(connID uint32) uint32 {
	if c, ok := t.conns[connID]; ok {
		return c.sendWindow
	}
	return 0
}

// CanSendData returns true iff the connection is Open and holds at least n
// credits.
func (t *ConnTable) CanSendData(connID uint32, n uint32) bool {
	c, ok := t.conns[connID]
	return ok && c.state == StateOpen && c.sendWindow >= n
}

// ConsumeSendCredits deducts n credits from the connection's send window.
// An underflow fails without mutation.
func (t *ConnTable) ConsumeSendCredits(connID uint32, n uint32) error {
	c, ok := t.conns[connID]
	if !ok {
		return ErrUnknownConn
	}
	if c.state != StateOpen {
		return ErrConnNotOpen
	}
	if c.sendWindow < n {
		obs.RecordError(obs.ProtocolViolation)
		return ErrWindowUnderflow
	}
	c.sendWindow -= n
	return nil
}

// AddSendCredits grants n credits, saturating at twice the initial window.
func (t *ConnTable) AddSendCredits(connID uint32, n uint32) error {
	c, ok := t.conns[connID]
	if !ok {
		return ErrUnknownConn
	}
	max := 2 * c.initialWindow
	if n > max || c.sendWindow > max-n {
		c.sendWindow = max
	} else {
		c.sendWindow += n
	}
	return nil
}

// BufferBytes accounts n bytes against the connection's buffer allowance.
func (t *ConnTable) BufferBytes(connID uint32, n int) error {
	c, ok := t.conns[connID]
	if !ok {
		return ErrUnknownConn
	}
	if t.limits.MaxBufferedBytes > 0 && c.bufferedBytes+n > t.limits.MaxBufferedBytes {
		obs.RecordError(obs.ResourceLimit)
		return ErrBufferFull
	}
	c.bufferedBytes += n
	return nil
}

// ReleaseBytes returns n bytes to the connection's buffer allowance.
func (t *ConnTable) ReleaseBytes(connID uint32, n int) {
	if c, ok := t.conns[connID]; ok {
		c.bufferedBytes -= n
		if c.bufferedBytes < 0 {
			c.bufferedBytes = 0
		}
	}
}

// PollControlFrames returns one WindowUpdate for every Open connection
// whose window has fallen below a quarter of its initial value, and
// optimistically restores each such window to its initial value.
func (t *ConnTable) PollControlFrames() []commands.Command {
	var out []commands.Command
	for id, c := range t.conns {
		if c.state != StateOpen {
			continue
		}
		if c.sendWindow >= c.initialWindow/4 {
			continue
		}
		out = append(out, &commands.WindowUpdate{
			ConnID:  id,
			Credits: c.initialWindow - c.sendWindow,
		})
		c.sendWindow = c.initialWindow
	}
	return out
}
