// factory.go - Dialing transport factory.
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

package transport

import (
	"time"
)

const (
	defaultDialTimeout  = 60 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// DialFactory is a Factory that dials paths over the network.
type DialFactory struct {
	// DialTimeout bounds connection establishment.  Zero selects the
	// default.
	DialTimeout time.Duration

	// WriteTimeout bounds each SendBytes call on the resulting adapters.
	// Zero selects the default.
	WriteTimeout time.Duration
}

// OpenTransport dials the given path and returns a connected Adapter.
func (f *DialFactory) OpenTransport(path Path) (Adapter, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	dialTimeout := f.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	writeTimeout := f.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	switch path.Scheme {
	case SchemeTCP:
		return dialTCP(path, dialTimeout, writeTimeout)
	case SchemeQUIC:
		return dialQUIC(path, dialTimeout, writeTimeout)
	default:
		return nil, ErrUnknownScheme
	}
}
