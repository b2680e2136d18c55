// Web request handlers
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

package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"go-jeux"
)

const DB_TIMEOUT = 20 * time.Second // arbitrary choice

const RECENT_GAMES = 50

// Generate the index page
func (s *Web) index(w http.ResponseWriter, r *http.Request) {
	var (
		games []*jeux.GameRecord
		err   error
	)
	if s.conf.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), DB_TIMEOUT)
		defer cancel()
		games, err = s.conf.DB.RecentGames(ctx, RECENT_GAMES)
		if err != nil {
			log.Print(err)
		}
	}

	w.Header().Add("Content-Type", "text/html")
	w.Header().Add("Cache-Control", "max-age=10")
	err = tmpl.ExecuteTemplate(w, "index.tmpl", struct {
		Players []*jeux.Player
		Games   []*jeux.GameRecord
	}{s.reg.Players(), games})
	if err != nil {
		log.Print(err)
	}
}
