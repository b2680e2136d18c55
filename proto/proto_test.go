package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for i, test := range []struct {
		hdr     Header
		payload []byte
	}{
		{Header{Type: LOGIN}, []byte("alice")},
		{Header{Type: ACK}, nil},
		{Header{Type: INVITED, Id: 3, Role: 2}, []byte("bob")},
		{Header{Type: ENDED, Id: 255, Role: 1}, nil},
		{Header{Type: MOVED}, bytes.Repeat([]byte("x"), 1024)},
	} {
		var buf bytes.Buffer
		if err := Send(&buf, &test.hdr, test.payload); err != nil {
			t.Fatalf("(%d) Send failed: %s", i, err)
		}
		hdr, payload, err := Recv(&buf)
		if err != nil {
			t.Fatalf("(%d) Recv failed: %s", i, err)
		}
		if hdr.Type != test.hdr.Type || hdr.Id != test.hdr.Id || hdr.Role != test.hdr.Role {
			t.Errorf("(%d) Header mismatch: %+v", i, hdr)
		}
		if int(hdr.Size) != len(test.payload) {
			t.Errorf("(%d) Expected size %d, got %d", i, len(test.payload), hdr.Size)
		}
		if !bytes.Equal(payload, test.payload) {
			t.Errorf("(%d) Payload mismatch: %q", i, payload)
		}
	}
}

func TestWireLayout(t *testing.T) {
	var buf bytes.Buffer
	hdr := Header{Type: INVITE, Id: 7, Role: 2}
	if err := Send(&buf, &hdr, []byte("bob")); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != HeaderSize+3 {
		t.Fatalf("Expected %d bytes on the wire, got %d", HeaderSize+3, len(b))
	}
	if b[0] != 0x12 {
		t.Errorf("Expected type byte 0x12, got %#02x", b[0])
	}
	if b[1] != 7 || b[2] != 2 {
		t.Errorf("Id/role bytes wrong: %d, %d", b[1], b[2])
	}
	if size := binary.BigEndian.Uint16(b[3:5]); size != 3 {
		t.Errorf("Expected big-endian size 3, got %d", size)
	}
	if sec := binary.BigEndian.Uint32(b[5:9]); sec != hdr.Sec {
		t.Errorf("Timestamp not big-endian: %d != %d", sec, hdr.Sec)
	}
	if string(b[HeaderSize:]) != "bob" {
		t.Errorf("Payload corrupted: %q", b[HeaderSize:])
	}
}

func TestRecvDisconnected(t *testing.T) {
	// EOF before any bytes
	if _, _, err := Recv(bytes.NewReader(nil)); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Expected %s, got %v", ErrDisconnected, err)
	}

	// Truncated header
	if _, _, err := Recv(bytes.NewReader(make([]byte, HeaderSize-1))); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Expected %s, got %v", ErrDisconnected, err)
	}

	// Header promising more payload than the stream holds
	var buf bytes.Buffer
	if err := Send(&buf, &Header{Type: MOVE}, []byte("5x")); err != nil {
		t.Fatal(err)
	}
	trunc := buf.Bytes()[:buf.Len()-1]
	if _, _, err := Recv(bytes.NewReader(trunc)); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Expected %s, got %v", ErrDisconnected, err)
	}
}
