// Invitation State Machine
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
	"sync"

	"go-jeux"
	"go-jeux/game"
)

type InvState uint8

const (
	INV_OPEN InvState = iota
	INV_ACCEPTED
	INV_CLOSED
)

var (
	ErrSelfInvite = errors.New("cannot invite oneself")
	ErrNotOpen    = errors.New("invitation is not open")
	ErrInvClosed  = errors.New("invitation is closed")
	ErrNoRole     = errors.New("a role is required to resign a running game")
)

// An Invitation ties two sessions together, first as a proposal and
// after acceptance as the carrier of a game.  The endpoints and
// roles are fixed at creation; only the state and the game are
// guarded by the mutex.
//
// All cross-session operations linearize on this mutex: the state
// transition happens first, and a racing peer observes a non-open
// invitation and fails cleanly.  No session state mutex is ever held
// while taking it.
type Invitation struct {
	source, target *Client
	srole, trole   jeux.Role

	mu    sync.Mutex
	state InvState
	game  *game.Game
}

func MakeInvitation(source, target *Client, srole, trole jeux.Role) (*Invitation, error) {
	if source == target {
		return nil, ErrSelfInvite
	}
	return &Invitation{
		source: source,
		target: target,
		srole:  srole,
		trole:  trole,
	}, nil
}

func (inv *Invitation) Source() *Client       { return inv.source }
func (inv *Invitation) Target() *Client       { return inv.target }
func (inv *Invitation) SourceRole() jeux.Role { return inv.srole }
func (inv *Invitation) TargetRole() jeux.Role { return inv.trole }

func (inv *Invitation) State() InvState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Game returns the game in play, or nil while the invitation has not
// been accepted.
func (inv *Invitation) Game() *game.Game {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.game
}

// Accept transitions an open invitation to the accepted state and
// starts the game.
func (inv *Invitation) Accept() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != INV_OPEN {
		return ErrNotOpen
	}
	inv.state = INV_ACCEPTED
	inv.game = game.Make()
	return nil
}

// Resign closes an accepted invitation by resigning its game.  It
// fails when the game has already terminated, so a resignation
// racing the game-ending move of the opponent is rejected instead of
// ending the game twice.
func (inv *Invitation) Resign(role jeux.Role) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	switch inv.state {
	case INV_OPEN:
		return ErrNoGame
	case INV_CLOSED:
		return ErrInvClosed
	}
	if err := inv.game.Resign(role); err != nil {
		return err
	}
	inv.state = INV_CLOSED
	return nil
}

// Close transitions to the closed state.  A game still in progress
// is resigned by ROLE; closing such an invitation without a role is
// an error.  Closing twice is an error.
func (inv *Invitation) Close(role jeux.Role) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != INV_OPEN && inv.state != INV_ACCEPTED {
		return ErrInvClosed
	}
	if inv.game != nil && !inv.game.Over() {
		if role == jeux.NONE {
			return ErrNoRole
		}
		if err := inv.game.Resign(role); err != nil {
			return err
		}
	}
	inv.state = INV_CLOSED
	return nil
}
