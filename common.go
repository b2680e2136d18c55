// Common Types and Constants
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

package jeux

import (
	"fmt"
	"time"
)

type (
	// Role identifies a participant in a game.  FIRST moves
	// first and plays X, SECOND plays O.
	Role uint8

	// Piece is the contents of a single board cell.
	Piece uint8

	// Result is the outcome of a game, relative to the argument
	// order of PostResult.
	Result uint8
)

const (
	NONE Role = iota
	FIRST
	SECOND
)

const (
	EMPTY Piece = iota
	X
	O
)

const (
	DRAW Result = iota
	WIN1
	WIN2
)

func (r Role) String() string {
	switch r {
	case NONE:
		return "none"
	case FIRST:
		return "first"
	case SECOND:
		return "second"
	default:
		panic(fmt.Sprintf("Illegal role %d", uint8(r)))
	}
}

// Other returns the opposing role.
func (r Role) Other() Role {
	switch r {
	case FIRST:
		return SECOND
	case SECOND:
		return FIRST
	default:
		return NONE
	}
}

// Piece returns the piece a role places on the board.
func (r Role) Piece() Piece {
	switch r {
	case FIRST:
		return X
	case SECOND:
		return O
	default:
		return EMPTY
	}
}

func (p Piece) String() string {
	switch p {
	case EMPTY:
		return " "
	case X:
		return "X"
	case O:
		return "O"
	default:
		panic(fmt.Sprintf("Illegal piece %d", uint8(p)))
	}
}

// Role returns the role that plays a piece.
func (p Piece) Role() Role {
	switch p {
	case X:
		return FIRST
	case O:
		return SECOND
	default:
		return NONE
	}
}

// Other returns the opposing piece.
func (p Piece) Other() Piece {
	switch p {
	case X:
		return O
	case O:
		return X
	default:
		return EMPTY
	}
}

// A GameRecord describes one finished game, as stored in the
// database and listed by the web interface.
type GameRecord struct {
	Id           int64
	Source       string
	Target       string
	SourceRole   Role
	Winner       Role
	Moves        uint
	SourceRating int
	TargetRating int
	PlayedAt     time.Time
}
