// transport.go - Transport adapter interfaces.
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

// Package transport defines the byte transport consumed by the binding
// pump, and provides TCP and QUIC backed implementations.
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrWriteBlocked is returned when the transport cannot accept the
	// write without blocking.
	ErrWriteBlocked = errors.New("transport: write blocked")

	// ErrTimeout is returned when an I/O deadline expires.
	ErrTimeout = errors.New("transport: timeout")

	// ErrConnectionLost is returned when the peer is gone.
	ErrConnectionLost = errors.New("transport: connection lost")

	// ErrReadError is returned on a failed read.
	ErrReadError = errors.New("transport: read error")

	// ErrUnknownScheme is returned by the factory for a path whose scheme
	// has no registered adapter.
	ErrUnknownScheme = errors.New("transport: unknown path scheme")
)

const (
	// SchemeTCP selects the TCP adapter.
	SchemeTCP = "tcp"

	// SchemeQUIC selects the QUIC adapter.
	SchemeQUIC = "quic"
)

// Path describes one egress path the pump can bind to.
type Path struct {
	// Scheme selects the adapter ("tcp" or "quic").
	Scheme string

	// Address is the dial target in host:port form.
	Address string
}

// String returns the path in scheme://address form.
func (p Path) String() string {
	return fmt.Sprintf("%s://%s", p.Scheme, p.Address)
}

// Validate returns an error if the path cannot be dialed.
func (p Path) Validate() error {
	switch p.Scheme {
	case SchemeTCP, SchemeQUIC:
	default:
		return ErrUnknownScheme
	}
	if p.Address == "" {
		return errors.New("transport: path address is not set")
	}
	return nil
}

// Adapter is a byte transport.  Every non-nil error from SendBytes is
// terminal for the adapter; the caller is expected to Close it and open a
// replacement.
type Adapter interface {
	// SendBytes writes data to the peer.
	SendBytes(data []byte) error

	// Close tears the transport down.  Close is idempotent.
	Close()
}

// Factory opens transports for paths.  It is consumed by the binding pump
// at startup and after each path rotation.
type Factory interface {
	// OpenTransport dials the given path and returns a connected Adapter.
	OpenTransport(path Path) (Adapter, error)
}
