// tcp.go - TCP transport adapter.
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
	"net"
	"sync"
	"time"
)

type tcpAdapter struct {
	closeOnce sync.Once

	conn         net.Conn
	writeTimeout time.Duration
}

func (a *tcpAdapter) SendBytes(data []byte) error {
	if a.writeTimeout > 0 {
		if err := a.conn.SetWriteDeadline(time.Now().Add(a.writeTimeout)); err != nil {
			return ErrConnectionLost
		}
	}
	if _, err := a.conn.Write(data); err != nil {
		return mapNetError(err)
	}
	return nil
}

func (a *tcpAdapter) Close() {
	a.closeOnce.Do(func() {
		_ = a.conn.Close()
	})
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return ErrTimeout
	}
	return ErrConnectionLost
}

func dialTCP(path Path, dialTimeout, writeTimeout time.Duration) (Adapter, error) {
	conn, err := net.DialTimeout("tcp", path.Address, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpAdapter{conn: conn, writeTimeout: writeTimeout}, nil
}
