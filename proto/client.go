// Client Session Management
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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"go-jeux"
	"go-jeux/conf"
	"go-jeux/game"
)

var (
	ErrLoggedIn    = errors.New("session is already logged in")
	ErrNotLoggedIn = errors.New("session is not logged in")
	ErrNoInvite    = errors.New("no invitation under this id")
	ErrNotSource   = errors.New("session is not the source of the invitation")
	ErrNotTarget   = errors.New("session is not the target of the invitation")
	ErrNoGame      = errors.New("invitation has no game in progress")
	ErrInProgress  = errors.New("invitation already has a game")
	ErrNoFreeId    = errors.New("no invitation ids left on this session")
)

// An entry in a session's invitation list.  Ids count up from zero
// per session and are never reused, even after removal.
type entry struct {
	id  int
	inv *Invitation
}

// A Client is the per-connection session.  The service loop is its
// only reader, but peers reach into it when invitations cross
// sessions, so all state is guarded by lock.  Writes to the
// connection are serialized by wlock, which is never held together
// with lock.
type Client struct {
	reg  *Registry
	conf *conf.Conf
	rwc  io.ReadWriteCloser

	wlock sync.Mutex

	lock    sync.Mutex
	player  *jeux.Player
	invites []entry
	nextid  int
}

// String returns an internal identifier for tracing.
func (cli *Client) String() string {
	return fmt.Sprintf("%p", cli.rwc)
}

// Player returns the logged-in player, or nil.
func (cli *Client) Player() *jeux.Player {
	cli.lock.Lock()
	defer cli.lock.Unlock()
	return cli.player
}

// Send transmits one packet, serialized against all other writers to
// this connection.
func (cli *Client) Send(hdr *Header, payload []byte) error {
	cli.wlock.Lock()
	defer cli.wlock.Unlock()
	err := Send(cli.rwc, hdr, payload)
	if err != nil {
		jeux.Debug.Printf("%s: %s", cli, err)
	} else {
		jeux.Debug.Printf("%s > %s (id %d, role %d, %d bytes)",
			cli, hdr.Type, hdr.Id, hdr.Role, hdr.Size)
	}
	return err
}

func (cli *Client) SendAck(payload []byte) error {
	return cli.Send(&Header{Type: ACK}, payload)
}

func (cli *Client) SendNack() error {
	return cli.Send(&Header{Type: NACK}, nil)
}

// Login binds a player to this session.  The name claim in the
// registry is what makes concurrent logins under one name impossible.
func (cli *Client) Login(p *jeux.Player) error {
	cli.lock.Lock()
	loggedIn := cli.player != nil
	cli.lock.Unlock()
	if loggedIn {
		return ErrLoggedIn
	}
	if err := cli.reg.claim(p.Name(), cli); err != nil {
		return err
	}
	cli.lock.Lock()
	cli.player = p
	cli.lock.Unlock()
	return nil
}

// Logout resolves every pending invitation (resigning games in
// progress, revoking what this session proposed, declining the
// rest), then releases the player and the name claim.
func (cli *Client) Logout() error {
	cli.lock.Lock()
	p := cli.player
	pending := make([]entry, len(cli.invites))
	copy(pending, cli.invites)
	cli.lock.Unlock()
	if p == nil {
		return ErrNotLoggedIn
	}

	for _, e := range pending {
		var err error
		switch {
		case e.inv.Game() != nil:
			err = cli.ResignGame(e.id)
		case e.inv.Source() == cli:
			err = cli.Revoke(e.id)
		default:
			err = cli.Decline(e.id)
		}
		if err != nil {
			// The peer resolved the invitation first.
			jeux.Debug.Printf("%s: logout: invitation %d: %s", cli, e.id, err)
		}
	}

	cli.lock.Lock()
	cli.player = nil
	cli.lock.Unlock()
	cli.reg.release(p.Name(), cli)
	return nil
}

// AddInvitation appends INV to the list and returns its fresh local
// id.  Ids are never reused, and the wire addresses them with a
// single byte, so a session that has used up all 256 fails with -1.
func (cli *Client) AddInvitation(inv *Invitation) int {
	cli.lock.Lock()
	defer cli.lock.Unlock()
	if cli.nextid > math.MaxUint8 {
		return -1
	}
	id := cli.nextid
	cli.nextid++
	cli.invites = append(cli.invites, entry{id, inv})
	return id
}

// RemoveInvitation removes INV by identity and returns the local id
// it was held under, or -1.
func (cli *Client) RemoveInvitation(inv *Invitation) int {
	cli.lock.Lock()
	defer cli.lock.Unlock()
	for i, e := range cli.invites {
		if e.inv == inv {
			cli.invites = append(cli.invites[:i], cli.invites[i+1:]...)
			return e.id
		}
	}
	return -1
}

func (cli *Client) lookupInvite(id int) *Invitation {
	cli.lock.Lock()
	defer cli.lock.Unlock()
	for _, e := range cli.invites {
		if e.id == id {
			return e.inv
		}
	}
	return nil
}

// InviteId returns the local id INV is held under, or -1.
func (cli *Client) InviteId(inv *Invitation) int {
	cli.lock.Lock()
	defer cli.lock.Unlock()
	for _, e := range cli.invites {
		if e.inv == inv {
			return e.id
		}
	}
	return -1
}

// Invite proposes a game to TARGET, adds the invitation to both
// lists and notifies the target.  It returns the source-side id.
func (cli *Client) Invite(target *Client, srole, trole jeux.Role) (int, error) {
	p := cli.Player()
	if p == nil {
		return -1, ErrNotLoggedIn
	}
	inv, err := MakeInvitation(cli, target, srole, trole)
	if err != nil {
		return -1, err
	}
	id := cli.AddInvitation(inv)
	if id < 0 {
		return -1, ErrNoFreeId
	}
	tid := target.AddInvitation(inv)
	if tid < 0 {
		cli.RemoveInvitation(inv)
		return -1, ErrNoFreeId
	}

	// Best-effort: should the notification fail, the invitation
	// still exists and is resolved when the target's service
	// loop terminates.
	target.Send(&Header{
		Type: INVITED,
		Id:   uint8(tid),
		Role: uint8(trole),
	}, []byte(p.Name()))
	return id, nil
}

// Revoke withdraws an open invitation this session proposed and
// notifies the target.
func (cli *Client) Revoke(id int) error {
	inv := cli.lookupInvite(id)
	if inv == nil {
		return ErrNoInvite
	}
	if inv.Source() != cli {
		return ErrNotSource
	}
	if inv.Game() != nil {
		return ErrInProgress
	}
	// The close linearizes against a concurrent accept; if the
	// target got there first this fails and the caller is
	// NACKed.
	if err := inv.Close(jeux.NONE); err != nil {
		return err
	}
	cli.RemoveInvitation(inv)
	target := inv.Target()
	if tid := target.RemoveInvitation(inv); tid >= 0 {
		target.Send(&Header{Type: REVOKED, Id: uint8(tid)}, nil)
	}
	return nil
}

// Decline rejects an open invitation this session was offered and
// notifies the source.
func (cli *Client) Decline(id int) error {
	inv := cli.lookupInvite(id)
	if inv == nil {
		return ErrNoInvite
	}
	if inv.Target() != cli {
		return ErrNotTarget
	}
	if inv.Game() != nil {
		return ErrInProgress
	}
	if err := inv.Close(jeux.NONE); err != nil {
		return err
	}
	cli.RemoveInvitation(inv)
	source := inv.Source()
	if sid := source.RemoveInvitation(inv); sid >= 0 {
		source.Send(&Header{Type: DECLINED, Id: uint8(sid)}, nil)
	}
	return nil
}

// Accept starts the game of an open invitation this session was
// offered.  The source is sent ACCEPTED, carrying the initial board
// when the source moves first; otherwise the board is returned so
// that the caller's ACK can carry it.  Exactly one side receives the
// board: the one to move.
func (cli *Client) Accept(id int) (string, error) {
	inv := cli.lookupInvite(id)
	if inv == nil {
		return "", ErrNoInvite
	}
	if inv.Target() != cli {
		return "", ErrNotTarget
	}
	if err := inv.Accept(); err != nil {
		return "", err
	}

	board := inv.Game().String()
	source := inv.Source()
	// A source logging out concurrently has already dropped its
	// entry; there is no id left to address the notification to.
	if sid := source.InviteId(inv); sid >= 0 {
		var payload []byte
		if inv.SourceRole() == jeux.FIRST {
			payload = []byte(board)
		}
		source.Send(&Header{Type: ACCEPTED, Id: uint8(sid)}, payload)
	}
	if inv.SourceRole() == jeux.FIRST {
		return "", nil
	}
	return board, nil
}

// ResignGame gives up a game in progress.  The caller loses; the
// opponent is sent RESIGNED, both sides are sent ENDED with the
// final winner.
func (cli *Client) ResignGame(id int) error {
	inv := cli.lookupInvite(id)
	if inv == nil {
		return ErrNoInvite
	}
	g := inv.Game()
	if g == nil {
		return ErrNoGame
	}

	var role jeux.Role
	var opp *Client
	if inv.Source() == cli {
		role, opp = inv.SourceRole(), inv.Target()
	} else {
		role, opp = inv.TargetRole(), inv.Source()
	}
	// Linearization point; a concurrent resign by the opponent
	// closes the invitation first, and a concurrent game-ending
	// move terminates the game first.  Either way this caller
	// fails before any rating update or packet.
	if err := inv.Resign(role); err != nil {
		return err
	}
	myid := cli.RemoveInvitation(inv)
	oppid := opp.RemoveInvitation(inv)

	if p, o := cli.Player(), opp.Player(); p != nil && o != nil {
		jeux.PostResult(p, o, jeux.WIN2)
		cli.record(inv, g)
	}

	winner := g.Winner()
	opp.Send(&Header{Type: RESIGNED, Id: uint8(oppid)}, nil)
	cli.Send(&Header{Type: ENDED, Id: uint8(myid), Role: uint8(winner)}, nil)
	opp.Send(&Header{Type: ENDED, Id: uint8(oppid), Role: uint8(winner)}, nil)
	return nil
}

// MakeMove parses and applies a move.  The opponent is sent MOVED
// with the new board; when the move terminates the game, ratings are
// updated and both sides are sent ENDED with the winning role.
func (cli *Client) MakeMove(id int, text string) error {
	inv := cli.lookupInvite(id)
	if inv == nil {
		return ErrNoInvite
	}
	g := inv.Game()
	if g == nil {
		return ErrNoGame
	}

	var role jeux.Role
	var opp *Client
	if inv.Source() == cli {
		role, opp = inv.SourceRole(), inv.Target()
	} else {
		role, opp = inv.TargetRole(), inv.Source()
	}
	m, err := jeux.ParseMove(role, text)
	if err != nil {
		return err
	}
	// The game's own lock linearizes concurrent moves; applying
	// out of turn fails before any packet is sent.
	if err := g.Apply(m); err != nil {
		return err
	}

	myid := cli.InviteId(inv)
	oppid := opp.InviteId(inv)

	var buf bytes.Buffer
	buf.WriteByte('\n')
	buf.WriteString(g.String())
	if !g.Over() {
		fmt.Fprintf(&buf, "\n%s to move\n", g.Next())
	}
	opp.Send(&Header{Type: MOVED, Id: uint8(oppid)}, buf.Bytes())

	if !g.Over() {
		return nil
	}

	winner := g.Winner()
	var result jeux.Result
	switch winner {
	case role:
		result = jeux.WIN1
	case jeux.NONE:
		result = jeux.DRAW
	default:
		result = jeux.WIN2
	}
	if p, o := cli.Player(), opp.Player(); p != nil && o != nil {
		jeux.PostResult(p, o, result)
		cli.record(inv, g)
	}
	cli.Send(&Header{Type: ENDED, Id: uint8(myid), Role: uint8(winner)}, nil)
	opp.Send(&Header{Type: ENDED, Id: uint8(oppid), Role: uint8(winner)}, nil)
	inv.Close(winner)
	cli.RemoveInvitation(inv)
	opp.RemoveInvitation(inv)
	return nil
}

// record stores a finished game in the database, when one is
// configured.
func (cli *Client) record(inv *Invitation, g *game.Game) {
	if cli.conf == nil || cli.conf.DB == nil {
		return
	}
	sp, tp := inv.Source().Player(), inv.Target().Player()
	if sp == nil || tp == nil {
		return
	}
	cli.conf.DB.RecordGame(context.Background(), &jeux.GameRecord{
		Source:       sp.Name(),
		Target:       tp.Name(),
		SourceRole:   inv.SourceRole(),
		Winner:       g.Winner(),
		Moves:        g.Moves(),
		SourceRating: sp.Rating(),
		TargetRating: tp.Rating(),
	})
}

// Handle runs the service loop until the connection reports EOF,
// then logs the session out and unregisters it.
func (cli *Client) Handle() {
	jeux.Debug.Printf("%s: starting service", cli)
	for {
		hdr, payload, err := Recv(cli.rwc)
		if err != nil {
			jeux.Debug.Printf("%s: %s", cli, err)
			break
		}
		cli.interpret(hdr, payload)
	}
	if cli.Player() != nil {
		if err := cli.Logout(); err != nil {
			jeux.Debug.Printf("%s: %s", cli, err)
		}
	}
	cli.reg.Unregister(cli)
	cli.rwc.Close()
	jeux.Debug.Printf("%s: ending service", cli)
}

// interpret dispatches one packet.  Every failure is answered with
// NACK, every success with ACK unless the operation's own packets
// cover the reply.
func (cli *Client) interpret(hdr *Header, payload []byte) {
	jeux.Debug.Printf("%s < %s (id %d, role %d, %d bytes)",
		cli, hdr.Type, hdr.Id, hdr.Role, hdr.Size)

	if hdr.Type != LOGIN && cli.Player() == nil {
		cli.SendNack()
		return
	}

	switch hdr.Type {
	case LOGIN:
		name := string(payload)
		if name == "" {
			cli.SendNack()
			return
		}
		p := cli.reg.players.Register(name)
		if err := cli.Login(p); err != nil {
			jeux.Debug.Printf("%s: login %q: %s", cli, name, err)
			cli.SendNack()
			return
		}
		cli.SendAck(nil)
	case USERS:
		var list []string
		for _, p := range cli.reg.Players() {
			list = append(list, fmt.Sprintf("%s\t%d", p.Name(), p.Rating()))
		}
		cli.SendAck([]byte(strings.Join(list, "\n")))
	case INVITE:
		var srole, trole jeux.Role
		switch hdr.Role {
		case 1:
			trole, srole = jeux.FIRST, jeux.SECOND
		case 2:
			trole, srole = jeux.SECOND, jeux.FIRST
		default:
			cli.SendNack()
			return
		}
		target := cli.reg.Lookup(string(payload))
		if target == nil {
			cli.SendNack()
			return
		}
		if _, err := cli.Invite(target, srole, trole); err != nil {
			cli.SendNack()
			return
		}
		cli.SendAck(nil)
	case REVOKE:
		cli.reply(cli.Revoke(int(hdr.Id)))
	case DECLINE:
		cli.reply(cli.Decline(int(hdr.Id)))
	case ACCEPT:
		board, err := cli.Accept(int(hdr.Id))
		if err != nil {
			cli.SendNack()
			return
		}
		cli.SendAck([]byte(board))
	case MOVE:
		cli.reply(cli.MakeMove(int(hdr.Id), string(payload)))
	case RESIGN:
		cli.reply(cli.ResignGame(int(hdr.Id)))
	default:
		cli.SendNack()
	}
}

func (cli *Client) reply(err error) {
	if err != nil {
		jeux.Debug.Printf("%s: %s", cli, err)
		cli.SendNack()
		return
	}
	cli.SendAck(nil)
}
