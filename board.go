// Board Implementation
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
	"errors"
	"fmt"
)

// Board is a 3x3 grid in row-major order.  Cell numbers as used in
// moves are 1-based.
type Board [9]Piece

// The eight possible winning lines: rows, columns, diagonals.
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the piece occupying a full line, or EMPTY if no
// line is complete.
func (b *Board) Winner() Piece {
	for _, l := range lines {
		if p := b[l[0]]; p != EMPTY && p == b[l[1]] && p == b[l[2]] {
			return p
		}
	}
	return EMPTY
}

// Full checks if every cell is occupied.
func (b *Board) Full() bool {
	for _, p := range b {
		if p == EMPTY {
			return false
		}
	}
	return true
}

// String renders the board in the five-line form sent to clients:
// three content rows separated by dash rows, no trailing newline.
func (b *Board) String() string {
	row := func(i int) string {
		return b[i].String() + "|" + b[i+1].String() + "|" + b[i+2].String()
	}
	return row(0) + "\n-----\n" + row(3) + "\n-----\n" + row(6)
}

// A Move places a piece on a cell (1 to 9, row-major).
type Move struct {
	Cell  int
	Piece Piece
}

func (m *Move) String() string {
	return fmt.Sprintf("%d->%s", m.Cell, m.Piece)
}

var ErrBadMove = errors.New("malformed move")

// ParseMove interprets a textual move as submitted by the role's
// client.  The cell digit is mandatory.  The piece letter is
// optional when the role determines it; when both are given they
// have to agree.
func ParseMove(role Role, s string) (*Move, error) {
	if len(s) == 0 || s[0] < '1' || s[0] > '9' {
		return nil, ErrBadMove
	}
	m := &Move{Cell: int(s[0] - '0')}
	for _, c := range s[1:] {
		switch c {
		case 'x', 'X':
			m.Piece = X
		case 'o', 'O':
			m.Piece = O
		default:
			continue
		}
		break
	}
	switch {
	case m.Piece == EMPTY && role == NONE:
		return nil, ErrBadMove
	case m.Piece == EMPTY:
		m.Piece = role.Piece()
	case role != NONE && m.Piece != role.Piece():
		return nil, ErrBadMove
	}
	return m, nil
}
