// config_test.go - Configuration tests.
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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[[Paths]]
Scheme = "tcp"
Address = "relay-a.invalid:4242"
`

func TestLoadMinimal(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cfg, err := Load([]byte(minimalConfig))
	require.NoError(err)

	require.Equal(defaultProtocolVersion, cfg.Pipeline.Version)
	require.Equal(defaultReleaseBatch, cfg.Pipeline.ReleaseBatch)
	require.Equal(defaultMixBatch, cfg.Pipeline.MixBatch)

	min, max := cfg.DelayBounds()
	require.Equal(defaultDelayMin, min)
	require.Equal(defaultDelayMax, max)

	min, max = cfg.EpochBounds()
	require.Equal(defaultEpochMin, min)
	require.Equal(defaultEpochMax, max)

	require.Equal(defaultInitialWindow, cfg.Limits.InitialWindow)
	require.Equal("NOTICE", cfg.Logging.Level)

	paths := cfg.TransportPaths()
	require.Len(paths, 1)
	require.Equal("tcp://relay-a.invalid:4242", paths[0].String())
}

func TestLoadFull(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	const full = `
[Pipeline]
Version = 3
ReleaseBatch = 128
MixBatch = 32
QueueDB = "/var/lib/ebtunnel/pending.db"

[Delay]
Min = 1000000000
Max = 5000000000

[Epoch]
Min = 60000000000
Max = 120000000000

[[Paths]]
Scheme = "tcp"
Address = "relay-a.invalid:4242"

[[Paths]]
Scheme = "quic"
Address = "relay-b.invalid:4433"

[Limits]
InitialWindow = 32768
MaxConnections = 64
MaxInflightOpens = 8
MaxBufferedBytes = 1048576

[Transport]
DialTimeoutMS = 5000
WriteTimeoutMS = 2000

[Logging]
Level = "DEBUG"

[Management]
MetricsAddress = "127.0.0.1:6543"
`
	cfg, err := Load([]byte(full))
	require.NoError(err)

	require.Equal(3, cfg.Pipeline.Version)
	require.Equal("/var/lib/ebtunnel/pending.db", cfg.Pipeline.QueueDB)

	min, max := cfg.DelayBounds()
	require.Equal(time.Second, min)
	require.Equal(5*time.Second, max)

	require.Len(cfg.TransportPaths(), 2)
	require.Equal(32768, cfg.Limits.InitialWindow)
	require.Equal("127.0.0.1:6543", cfg.Management.MetricsAddress)
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cases := []struct {
		name string
		toml string
	}{
		{"empty paths", ``},
		{"zero min delay", `
[Delay]
Min = 0
Max = 5
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
`},
		{"max below min delay", `
[Delay]
Min = 10
Max = 5
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
`},
		{"zero min epoch", `
[Epoch]
Min = 0
Max = 5
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
`},
		{"bad path scheme", `
[[Paths]]
Scheme = "carrier-pigeon"
Address = "a.invalid:1"
`},
		{"bad log level", `
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
[Logging]
Level = "LOUD"
`},
		{"oversize version", `
[Pipeline]
Version = 300
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
`},
		{"unknown key", `
[[Paths]]
Scheme = "tcp"
Address = "a.invalid:1"
[Pipeline]
Bogus = 1
`},
	}
	for _, c := range cases {
		_, err := Load([]byte(c.toml))
		require.Error(err, c.name)
	}
}
