// Game State Machine
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

package game

import (
	"errors"
	"sync"

	"go-jeux"
)

var (
	ErrGameOver = errors.New("game has terminated")
	ErrIllegal  = errors.New("illegal move")
)

// A Game is one match, in progress or terminated.  All methods are
// safe for concurrent use; both participants' service loops act on
// the same Game.
type Game struct {
	mu     sync.Mutex
	board  jeux.Board
	next   jeux.Piece
	over   bool
	winner jeux.Role
	moves  uint
}

func Make() *Game {
	return &Game{next: jeux.X}
}

// Apply attempts to make a move.  It fails if the game is over, the
// cell is occupied or it is not the piece's turn.  A move that
// completes a line or fills the board terminates the game.
func (g *Game) Apply(m *jeux.Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.over {
		return ErrGameOver
	}
	if m.Cell < 1 || m.Cell > 9 || g.board[m.Cell-1] != jeux.EMPTY {
		return ErrIllegal
	}
	if m.Piece != g.next {
		return ErrIllegal
	}
	g.board[m.Cell-1] = m.Piece
	g.next = g.next.Other()
	g.moves++

	if w := g.board.Winner(); w != jeux.EMPTY {
		g.over = true
		g.winner = w.Role()
	} else if g.board.Full() {
		g.over = true
		g.winner = jeux.NONE
	}
	return nil
}

// Resign terminates the game in favour of the opposing role.  It
// fails if the game has already terminated.
func (g *Game) Resign(role jeux.Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.over {
		return ErrGameOver
	}
	g.over = true
	g.winner = role.Other()
	return nil
}

func (g *Game) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// Winner is only meaningful once the game is over.  NONE denotes a
// draw.
func (g *Game) Winner() jeux.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Next returns the piece that moves next.
func (g *Game) Next() jeux.Piece {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

func (g *Game) Moves() uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moves
}

func (g *Game) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.String()
}
