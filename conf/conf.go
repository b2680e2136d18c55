// Configuration Specification
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

package conf

// Internal representation
type conf struct {
	Debug    bool `toml:"debug"`
	Database struct {
		File string `toml:"file"`
	} `toml:"database"`
	Web struct {
		Enabled bool `toml:"enabled"`
		Port    uint `toml:"port"`
	} `toml:"web"`
}

// Public configuration
//
// The listening port is not part of the file format; it is given on
// the command line and filled in by the entry point.
type Conf struct {
	// Protocol configuration
	TCPPort uint16 // Port for accepting connections

	// Database configuration
	Database string // DSN of the game record store
	DB       Database

	// Website configuration
	WebInterface bool   // Has the web interface been enabled?
	WebPort      uint16 // Port that the web server listens on

	// Debug logging
	Debug bool
}

// Configuration object used by default.  Game records live in a
// process-lifetime in-memory database; nothing is persisted across
// restarts.
var defaultConfig = Conf{
	Database:     "file:jeux?mode=memory&cache=shared",
	WebInterface: false,
	WebPort:      8080,
}
