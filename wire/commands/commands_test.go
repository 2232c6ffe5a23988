// SPDX-FileCopyrightText: Copyright (C) 2025  Alen Jiji
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHello(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &Hello{Version: 2, CapabilityFlags: 0xC0FFEE}
	b := cmd.ToBytes()
	require.Equal(helloLength, len(b), "Hello: ToBytes() length")

	c, err := FromBytes(b)
	require.NoError(err, "Hello: FromBytes()")
	d, ok := c.(*Hello)
	require.True(ok, "Hello: wrong type")
	require.Equal(cmd.Version, d.Version)
	require.Equal(cmd.CapabilityFlags, d.CapabilityFlags)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &Open{ConnID: 7, Host: "example.invalid", Port: 443}
	b := cmd.ToBytes()
	require.Equal(openBaseLength+len(cmd.Host), len(b), "Open: ToBytes() length")

	c, err := FromBytes(b)
	require.NoError(err, "Open: FromBytes()")
	d, ok := c.(*Open)
	require.True(ok, "Open: wrong type")
	require.Equal(cmd.ConnID, d.ConnID)
	require.Equal(cmd.Host, d.Host)
	require.Equal(cmd.Port, d.Port)
}

func TestOpenRejectsBadHost(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &Open{ConnID: 7, Host: "ok", Port: 80}
	b := cmd.ToBytes()
	b[6] = 0xFF // corrupt the host bytes into invalid UTF-8
	b[7] = 0xFE

	_, err := FromBytes(b)
	require.ErrorIs(err, ErrInvalidHost)
}

func TestClose(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &Close{ConnID: 99, Reason: 3}
	c, err := FromBytes(cmd.ToBytes())
	require.NoError(err)
	d, ok := c.(*Close)
	require.True(ok)
	require.Equal(cmd.ConnID, d.ConnID)
	require.Equal(cmd.Reason, d.Reason)
}

func TestWindowUpdate(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &WindowUpdate{ConnID: 12, Credits: 65536}
	c, err := FromBytes(cmd.ToBytes())
	require.NoError(err)
	d, ok := c.(*WindowUpdate)
	require.True(ok)
	require.Equal(cmd.ConnID, d.ConnID)
	require.Equal(cmd.Credits, d.Credits)
}

func TestError(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := &Error{ConnID: 4, Code: 1}
	c, err := FromBytes(cmd.ToBytes())
	require.NoError(err)
	d, ok := c.(*Error)
	require.True(ok)
	require.Equal(cmd.ConnID, d.ConnID)
	require.Equal(cmd.Code, d.Code)
}

func TestMalformed(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// Empty buffer.
	_, err := FromBytes(nil)
	require.Error(err)

	// Unknown opcode.
	_, err = FromBytes([]byte{0x7F, 0x00})
	require.Error(err)

	// Truncated bodies for every opcode.
	for _, id := range []byte{0x00, 0x01, 0x02, 0x03, 0x04} {
		_, err = FromBytes([]byte{id, 0x01})
		require.Error(err, "opcode 0x%02x", id)
	}

	// Open with a host_len that overruns the buffer.
	cmd := &Open{ConnID: 1, Host: "ab", Port: 1}
	b := cmd.ToBytes()
	b[5] = 200
	_, err = FromBytes(b)
	require.Error(err)
}
