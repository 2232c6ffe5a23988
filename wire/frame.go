// frame.go - Length-prefixed wire framing.
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

// Package wire implements the length-prefixed framing layer.  Frames are
// opaque to everything below the protocol engine; this package never
// inspects payload contents.
package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// FrameOverhead is the length of the wire encoding exclusive of the
	// payload: length(4) + version(1) + type(1).
	FrameOverhead = 6

	// MaxFrameLength is the maximum allowed value of the length field,
	// which covers the version and type octets plus the payload.
	MaxFrameLength = 1048576

	// MaxPayloadLength is the maximum payload a single frame can carry.
	MaxPayloadLength = MaxFrameLength - minFrameLength

	minFrameLength = 2
)

// FrameType is the type octet of a frame.
type FrameType byte

const (
	// FrameTypeControl denotes a flow-control/housekeeping frame.
	FrameTypeControl FrameType = 0x01

	// FrameTypeData denotes an opaque data frame.
	FrameTypeData FrameType = 0x02
)

var (
	// ErrFrameTooLarge is returned when the length field exceeds
	// MaxFrameLength.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum length")

	// ErrFrameTooSmall is returned when the length field is under the
	// minimum frame body size.
	ErrFrameTooSmall = errors.New("wire: frame under minimum length")

	// ErrUnknownFrameType is returned when the type octet is not a known
	// frame type.
	ErrUnknownFrameType = errors.New("wire: unknown frame type")

	// ErrTruncated is returned when the buffer holds only a prefix of a
	// frame.  No bytes are consumed; the caller should retry once more
	// bytes have arrived.
	ErrTruncated = errors.New("wire: truncated frame")
)

// Frame is a single wire protocol frame.  Frames are value objects: created
// here, moved through the pipeline, and destroyed by the transport writer.
type Frame struct {
	Version byte
	Type    FrameType
	Payload []byte
}

// ToBytes serializes the frame as length(4, big endian) || version(1) ||
// type(1) || payload, where length = 2 + len(payload).
func (f *Frame) ToBytes() ([]byte, error) {
	if len(f.Payload) > MaxPayloadLength {
		return nil, ErrFrameTooLarge
	}
	switch f.Type {
	case FrameTypeControl, FrameTypeData:
	default:
		return nil, ErrUnknownFrameType
	}

	out := make([]byte, FrameOverhead, FrameOverhead+len(f.Payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(minFrameLength+len(f.Payload)))
	out[4] = f.Version
	out[5] = byte(f.Type)
	out = append(out, f.Payload...)
	return out, nil
}

// FromBytes deserializes the frame at the head of b.  On success it returns
// the frame and the number of bytes consumed.  The decoder is partial: given
// a proper prefix of an encoded frame it returns ErrTruncated with zero
// bytes consumed, and will succeed once the remaining bytes are appended.
func FromBytes(b []byte) (*Frame, int, error) {
	if len(b) < 4 {
		return nil, 0, ErrTruncated
	}

	length := binary.BigEndian.Uint32(b[0:4])
	if length > MaxFrameLength {
		return nil, 0, ErrFrameTooLarge
	}
	if length < minFrameLength {
		return nil, 0, ErrFrameTooSmall
	}
	if uint32(len(b)-4) < length {
		return nil, 0, ErrTruncated
	}

	f := &Frame{
		Version: b[4],
		Type:    FrameType(b[5]),
	}
	switch f.Type {
	case FrameTypeControl, FrameTypeData:
	default:
		return nil, 0, ErrUnknownFrameType
	}

	payloadLen := int(length) - minFrameLength
	f.Payload = make([]byte, payloadLen)
	copy(f.Payload, b[FrameOverhead:FrameOverhead+payloadLen])
	return f, 4 + int(length), nil
}

// EncodedLength returns the total on-the-wire size of the frame at the head
// of b if its length field is parseable, and false otherwise.  Used by the
// engine to skip past malformed frames when resynchronizing.
func EncodedLength(b []byte) (int, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return 4 + int(binary.BigEndian.Uint32(b[0:4])), true
}
