// Packet Codec
//
// Copyright (c) 2023, 2024  Philip Kaludercic
//
// This file is part of go-jeux.
//
// go-jeux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-jeux is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-jeux. If not, see
// <http://www.gnu.org/licenses/>

package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Type is the first header byte, identifying what a packet means.
type Type uint8

// Packets sent by clients.
const (
	LOGIN Type = 0x10 + iota
	USERS
	INVITE
	REVOKE
	DECLINE
	ACCEPT
	MOVE
	RESIGN
)

// Packets sent by the server.
const (
	ACK Type = 0x20 + iota
	NACK
	INVITED
	REVOKED
	DECLINED
	ACCEPTED
	MOVED
	RESIGNED
	ENDED
)

func (t Type) String() string {
	switch t {
	case LOGIN:
		return "LOGIN"
	case USERS:
		return "USERS"
	case INVITE:
		return "INVITE"
	case REVOKE:
		return "REVOKE"
	case DECLINE:
		return "DECLINE"
	case ACCEPT:
		return "ACCEPT"
	case MOVE:
		return "MOVE"
	case RESIGN:
		return "RESIGN"
	case ACK:
		return "ACK"
	case NACK:
		return "NACK"
	case INVITED:
		return "INVITED"
	case REVOKED:
		return "REVOKED"
	case DECLINED:
		return "DECLINED"
	case ACCEPTED:
		return "ACCEPTED"
	case MOVED:
		return "MOVED"
	case RESIGNED:
		return "RESIGNED"
	case ENDED:
		return "ENDED"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// HeaderSize is the wire size of the fixed packet header.  The
// multi-byte fields are not aligned, matching the packed layout
// clients expect.
const HeaderSize = 13

// A Header precedes every packet.  The size field gives the length
// of the payload that follows, the timestamps record the send time.
type Header struct {
	Type Type
	Id   uint8
	Role uint8
	Size uint16
	Sec  uint32
	Nsec uint32
}

var (
	// ErrDisconnected is reported when the peer has closed the
	// connection or a packet could not be fully transmitted.
	ErrDisconnected = errors.New("client disconnected")

	errOversized = errors.New("payload exceeds packet size limit")
)

// Send writes a packet.  The size field and the timestamps of HDR
// are filled in.  Callers serialize invocations per connection.
func Send(w io.Writer, hdr *Header, payload []byte) error {
	if len(payload) > math.MaxUint16 {
		return errOversized
	}
	hdr.Size = uint16(len(payload))
	now := time.Now()
	hdr.Sec = uint32(now.Unix())
	hdr.Nsec = uint32(now.Nanosecond())

	var buf [HeaderSize]byte
	buf[0] = byte(hdr.Type)
	buf[1] = hdr.Id
	buf[2] = hdr.Role
	binary.BigEndian.PutUint16(buf[3:5], hdr.Size)
	binary.BigEndian.PutUint32(buf[5:9], hdr.Sec)
	binary.BigEndian.PutUint32(buf[9:13], hdr.Nsec)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("send header: %w", ErrDisconnected)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("send payload: %w", ErrDisconnected)
		}
	}
	return nil
}

// Recv blocks until a complete packet has been read.  A short read
// at any point, in particular EOF, is reported as ErrDisconnected.
func Recv(r io.Reader) (*Header, []byte, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, nil, fmt.Errorf("recv header: %w", ErrDisconnected)
	}
	hdr := &Header{
		Type: Type(buf[0]),
		Id:   buf[1],
		Role: buf[2],
		Size: binary.BigEndian.Uint16(buf[3:5]),
		Sec:  binary.BigEndian.Uint32(buf[5:9]),
		Nsec: binary.BigEndian.Uint32(buf[9:13]),
	}
	var payload []byte
	if hdr.Size > 0 {
		payload = make([]byte, hdr.Size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("recv payload: %w", ErrDisconnected)
		}
	}
	return hdr, payload, nil
}
