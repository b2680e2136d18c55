// Web Interface Manager
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
	"fmt"
	"html/template"
	"log"
	"net/http"

	"go-jeux/conf"
	"go-jeux/proto"
)

// The status interface is read-only: it lists logged-in players and
// recently finished games, and optionally accepts game connections
// over websockets.
type Web struct {
	conf *conf.Conf
	reg  *proto.Registry
	srv  *http.Server
}

func (*Web) String() string { return "Web server" }

func (s *Web) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /")
	})
	mux.HandleFunc("/socket", s.upgrader())
	mux.HandleFunc("/", s.index)

	tmpl = template.Must(template.New("").Funcs(funcs).ParseFS(html, "*.tmpl"))

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.conf.WebPort),
		Handler: mux,
	}
	log.Printf("Listening via HTTP on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Print(err)
	}
}

func (s *Web) Shutdown() {
	if s.srv != nil {
		if err := s.srv.Shutdown(context.Background()); err != nil {
			log.Print(err)
		}
	}
}

// Prepare creates the web interface, when enabled.  The caller
// starts it on its own goroutine.
func Prepare(c *conf.Conf, reg *proto.Registry) *Web {
	if !c.WebInterface {
		return nil
	}
	return &Web{conf: c, reg: reg}
}
