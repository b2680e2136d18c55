// Database Manager Interface
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
	"context"

	"go-jeux"
)

// Database is the game record store.  The conf package owns the
// interface so that sessions can record results without depending on
// the concrete store.
type Database interface {
	// Store interface
	RecordGame(context.Context, *jeux.GameRecord)

	// Access interface
	RecentGames(context.Context, int) ([]*jeux.GameRecord, error)

	Shutdown()
}
