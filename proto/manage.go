// TCP Interface
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
	"errors"
	"fmt"
	"log"
	"net"

	"go-jeux"
)

// A Listener accepts TCP connections and hands them to the client
// registry.  Every accepted connection is served by its own
// goroutine; the listener itself runs on the caller's.
type Listener struct {
	reg  *Registry
	conn net.Listener
	port uint16
}

func (*Listener) String() string {
	return "TCP listener"
}

func MakeListener(reg *Registry, port uint16) (*Listener, error) {
	conn, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return &Listener{reg: reg, conn: conn, port: port}, nil
}

// Port returns the port the listener is bound to.
func (l *Listener) Port() uint16 {
	if addr, ok := l.conn.Addr().(*net.TCPAddr); ok {
		return uint16(addr.Port)
	}
	return l.port
}

// Start accepts connections until the listener is shut down.  It
// returns nil after Shutdown and the accept error otherwise.
func (l *Listener) Start() error {
	log.Printf("Accepting connections on :%d", l.Port())
	for {
		conn, err := l.conn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		cli := l.reg.Register(conn)
		if cli == nil {
			jeux.Debug.Printf("Rejecting %s: registry full", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go cli.Handle()
	}
}

// Shutdown stops accepting.  Connected sessions are unaffected.
func (l *Listener) Shutdown() {
	log.Println("Stopped accepting connections")
	if err := l.conn.Close(); err != nil {
		log.Print(err)
	}
}
