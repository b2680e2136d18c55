// Entry point
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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-jeux"
	"go-jeux/conf"
	"go-jeux/db"
	"go-jeux/proto"
	"go-jeux/web"
)

// Default file name for the configuration file
const defconf = "jeux.toml"

func main() {
	port := flag.Uint("p", 0, "Port to listen on")
	flag.Parse()
	if flag.NArg() != 0 || *port == 0 || *port > 0xffff {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s -p <port>\n", os.Args[0])
		os.Exit(2)
	}

	// A write onto a connection the peer has already closed must
	// fail with an error, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	// Load the configuration from disk (if available)
	config, err := conf.Open(defconf)
	if os.IsNotExist(err) {
		config = conf.Default()
	} else if err != nil {
		log.Fatal(err)
	}
	config.TCPPort = uint16(*port)
	jeux.Debug.Println("Debug logging has been enabled")

	// Enable the database
	if err := db.Prepare(config); err != nil {
		log.Fatal(err)
	}

	// Wire up the registries
	players := jeux.MakeRegistry()
	clients := proto.MakeRegistry(players, config)

	// Enable the web interface
	w := web.Prepare(config, clients)
	if w != nil {
		go w.Start()
	}

	// Allow TCP connections
	listener, err := proto.MakeListener(clients, config.TCPPort)
	if err != nil {
		log.Fatal(err)
	}

	// A SIGHUP requests a graceful shutdown: stop accepting, then
	// drain the connected sessions below.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		<-hup
		log.Println("Caught SIGHUP, shutting down")
		listener.Shutdown()
	}()

	err = listener.Start()
	if err != nil {
		log.Print(err)
	}

	clients.ShutdownAll()
	log.Println("Waiting for connections to drain")
	clients.WaitForEmpty()
	if w != nil {
		w.Shutdown()
	}
	config.DB.Shutdown()

	if err != nil {
		os.Exit(1)
	}
}
