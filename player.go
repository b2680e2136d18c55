// Player Model and Rating
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
	"math"
	"sync"
)

// InitialRating is assigned to every newly registered player.
const InitialRating = 1500

// A Player is the persistent identity behind a connection: a unique
// name and an Elo rating.  Players are never removed, a returning
// user continues with their old rating.
type Player struct {
	mu     sync.Mutex
	name   string
	rating int
}

func MakePlayer(name string) *Player {
	return &Player{name: name, rating: InitialRating}
}

// Name is immutable and needs no lock.
func (p *Player) Name() string { return p.name }

func (p *Player) Rating() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating
}

// PostResult adjusts the ratings of both players after a game, using
// the Elo formula with K = 32.  Adjustments truncate towards zero.
// Both players are locked for the duration, in a fixed order so that
// concurrent postings cannot deadlock.
func PostResult(p1, p2 *Player, result Result) {
	a, b := p1, p2
	if a.name > b.name {
		a, b = b, a
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a != b {
		b.mu.Lock()
		defer b.mu.Unlock()
	}

	var s1 float64
	switch result {
	case DRAW:
		s1 = 0.5
	case WIN1:
		s1 = 1
	case WIN2:
		s1 = 0
	default:
		panic("Illegal result")
	}
	s2 := 1 - s1

	r1, r2 := float64(p1.rating), float64(p2.rating)
	e1 := 1 / (1 + math.Pow(10, (r2-r1)/400))
	e2 := 1 / (1 + math.Pow(10, (r1-r2)/400))
	p1.rating += int(32 * (s1 - e1))
	p2.rating += int(32 * (s2 - e2))
}

// A Registry maps names to players.  Entries persist for the
// lifetime of the process, independently of connections.
type Registry struct {
	mu      sync.Mutex
	players map[string]*Player
}

func MakeRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// Register returns the player of that name, creating one with the
// initial rating on first use.
func (r *Registry) Register(name string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[name]
	if !ok {
		p = MakePlayer(name)
		r.players[name] = p
	}
	return p
}
