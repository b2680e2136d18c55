// Configuration loading and dumping
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

import (
	"io"
	"os"

	"go-jeux"

	"github.com/BurntSushi/toml"
)

// Parse a configuration from R
func load(r io.Reader) (*Conf, error) {
	var data conf
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}

	c := defaultConfig
	c.Debug = data.Debug
	if data.Database.File != "" {
		c.Database = data.Database.File
	}
	c.WebInterface = data.Web.Enabled
	if data.Web.Port != 0 {
		c.WebPort = uint16(data.Web.Port)
	}

	if c.Debug {
		jeux.Debug.SetOutput(os.Stderr)
	}
	return &c, nil
}

// Open a configuration file and return it
func Open(name string) (*Conf, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return load(file)
}

// Return a copy of the default configuration
func Default() *Conf {
	c := defaultConfig
	return &c
}

// Serialise the configuration into a writer
func (c *Conf) Dump(wr io.Writer) error {
	var data conf

	data.Debug = c.Debug
	data.Database.File = c.Database
	data.Web.Enabled = c.WebInterface
	data.Web.Port = uint(c.WebPort)

	return toml.NewEncoder(wr).Encode(data)
}
