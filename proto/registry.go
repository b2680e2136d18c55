// Client Registry
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
	"io"
	"net"
	"sync"

	"go-jeux"
	"go-jeux/conf"
)

// MaxClients caps the number of simultaneously connected sessions.
const MaxClients = 64

var ErrNameTaken = errors.New("name is already logged in")

// The Registry tracks every connected session and the names under
// which sessions are logged in.  It anchors sessions for their
// lifetime and provides the empty barrier the shutdown path waits
// on.
type Registry struct {
	conf    *conf.Conf
	players *jeux.Registry

	mu    sync.Mutex
	empty *sync.Cond
	count uint
	conns map[*Client]struct{}
	names map[string]*Client
}

func MakeRegistry(players *jeux.Registry, c *conf.Conf) *Registry {
	r := &Registry{
		conf:    c,
		players: players,
		conns:   make(map[*Client]struct{}),
		names:   make(map[string]*Client),
	}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// Register wraps a connection into a session.  It fails by returning
// nil when the registry is at capacity; the caller closes the
// connection in that case.
func (r *Registry) Register(rwc io.ReadWriteCloser) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == MaxClients {
		return nil
	}
	cli := &Client{reg: r, conf: r.conf, rwc: rwc}
	r.conns[cli] = struct{}{}
	r.count++
	jeux.Debug.Printf("Registered %s (total connected: %d)", cli, r.count)
	return cli
}

// Unregister removes a session.  When the last session is gone,
// every goroutine blocked in WaitForEmpty is released.
func (r *Registry) Unregister(cli *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[cli]; !ok {
		return
	}
	delete(r.conns, cli)
	r.count--
	jeux.Debug.Printf("Unregistered %s (total connected: %d)", cli, r.count)
	if r.count == 0 {
		r.empty.Broadcast()
	}
}

// Lookup finds the session logged in under a name, or nil.
func (r *Registry) Lookup(name string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[name]
}

// Players snapshots the players of all logged-in sessions.
func (r *Registry) Players() []*jeux.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	players := make([]*jeux.Player, 0, len(r.names))
	for _, cli := range r.names {
		if p := cli.Player(); p != nil {
			players = append(players, p)
		}
	}
	return players
}

// claim reserves a login name.  Reservation and lookup share one
// map, so two sessions racing to log in under the same name cannot
// both succeed.
func (r *Registry) claim(name string, cli *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[name]; ok {
		return ErrNameTaken
	}
	r.names[name] = cli
	return nil
}

func (r *Registry) release(name string, cli *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[name] == cli {
		delete(r.names, name)
	}
}

// ShutdownAll forces EOF onto every connected session without
// unregistering anyone.  TCP connections are shut down in both
// directions, so that blocked reads terminate and the peer sees FIN;
// other transports are closed outright.  The service loops observe
// the EOF, log their sessions out and unregister themselves.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cli := range r.conns {
		jeux.Debug.Printf("Shutting down %s", cli)
		if conn, ok := cli.rwc.(*net.TCPConn); ok {
			conn.CloseRead()
			conn.CloseWrite()
		} else {
			cli.rwc.Close()
		}
	}
}

// WaitForEmpty blocks until no session is registered.  Any number of
// goroutines may wait concurrently.
func (r *Registry) WaitForEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.count != 0 {
		r.empty.Wait()
	}
}
