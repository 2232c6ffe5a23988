// pipeline_test.go - Pipeline assembly tests.
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

package ebtunnel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alenjiji/ebtunnel/config"
	"github.com/alenjiji/ebtunnel/transport"
	"github.com/alenjiji/ebtunnel/wire"
)

type sinkTransport struct {
	sync.Mutex
	writes [][]byte
}

func (s *sinkTransport) SendBytes(data []byte) error {
	s.Lock()
	defer s.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.writes = append(s.writes, buf)
	return nil
}

func (s *sinkTransport) Close() {}

func (s *sinkTransport) count() int {
	s.Lock()
	defer s.Unlock()
	return len(s.writes)
}

type sinkFactory struct {
	sink *sinkTransport
}

func (f *sinkFactory) OpenTransport(transport.Path) (transport.Adapter, error) {
	return f.sink, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.Load([]byte(`
[Delay]
Min = 1000000
Max = 5000000

[Epoch]
Min = 3600000000000
Max = 3600000000000

[[Paths]]
Scheme = "tcp"
Address = "relay-a.invalid:4242"

[[Paths]]
Scheme = "tcp"
Address = "relay-b.invalid:4242"

[Logging]
Disable = true
Level = "DEBUG"
`))
	require.NoError(t, err)
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	require := require.New(t)

	sink := &sinkTransport{}
	p, err := NewWithFactory(testConfig(t), &sinkFactory{sink: sink})
	require.NoError(err)
	defer p.Shutdown()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(p.Engine().Enqueue([]byte{byte(i)}))
	}

	require.Eventually(func() bool {
		return sink.count() == n
	}, 10*time.Second, 5*time.Millisecond)

	sink.Lock()
	defer sink.Unlock()
	seen := make(map[byte]bool)
	for _, b := range sink.writes {
		f, _, err := wire.FromBytes(b)
		require.NoError(err)
		require.Equal(wire.FrameTypeData, f.Type)
		seen[f.Payload[0]] = true
	}
	require.Len(seen, n)
}

func TestPipelineShutdownIsIdempotent(t *testing.T) {
	require := require.New(t)

	p, err := NewWithFactory(testConfig(t), &sinkFactory{sink: &sinkTransport{}})
	require.NoError(err)

	p.Shutdown()
	p.Shutdown()
	p.Wait()
}

func TestPipelineRejectsBadConfig(t *testing.T) {
	require := require.New(t)

	cfg := testConfig(t)
	cfg.Delay.Min = 0
	cfg.Delay.Max = 0
	cfg.Delay.Min = -5

	_, err := NewWithFactory(cfg, &sinkFactory{sink: &sinkTransport{}})
	require.Error(err)
}
