// quic.go - QUIC transport adapter.
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
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

type quicAdapter struct {
	closeOnce sync.Once

	conn         *quic.Conn
	stream       *quic.Stream
	writeTimeout time.Duration
}

func (a *quicAdapter) SendBytes(data []byte) error {
	if a.writeTimeout > 0 {
		if err := a.stream.SetWriteDeadline(time.Now().Add(a.writeTimeout)); err != nil {
			return ErrConnectionLost
		}
	}
	if _, err := a.stream.Write(data); err != nil {
		return mapNetError(err)
	}
	return nil
}

func (a *quicAdapter) Close() {
	a.closeOnce.Do(func() {
		_ = a.stream.Close()
		_ = a.conn.CloseWithError(0, "")
	})
}

func dialQUIC(path Path, dialTimeout, writeTimeout time.Duration) (Adapter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	// ALPN (NextProtos) is externally visible as part of the QUIC TLS
	// handshake, in the client/server hello, so pick a common protocol
	// rather than something uniquely fingerprintable to this pipeline.
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{http3.NextProtoH3},
	}

	conn, err := quic.DialAddr(ctx, path.Address, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, err
	}
	return &quicAdapter{conn: conn, stream: stream, writeTimeout: writeTimeout}, nil
}
