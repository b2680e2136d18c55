// Game Record Store
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

package db

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log"
	"path"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-jeux"
	"go-jeux/conf"
)

//go:embed *.sql
var sql_dir embed.FS

// The store keeps one row per finished game.  The default DSN is a
// shared in-memory database, so records live exactly as long as the
// process; nothing is persisted across restarts.
type db struct {
	// The database connections
	read  *sql.DB
	write *sql.DB

	// The SQL statements are stored in *.sql files and loaded at
	// startup.  QUERIES are handled by READ, COMMANDS by WRITE.
	queries  map[string]*sql.Stmt
	commands map[string]*sql.Stmt
}

func (db *db) RecordGame(ctx context.Context, rec *jeux.GameRecord) {
	_, err := db.commands["insert-game"].ExecContext(ctx,
		rec.Source, rec.Target,
		uint8(rec.SourceRole), uint8(rec.Winner),
		rec.Moves,
		rec.SourceRating, rec.TargetRating)
	if err != nil {
		log.Print(err)
	}
}

func (db *db) RecentGames(ctx context.Context, n int) ([]*jeux.GameRecord, error) {
	rows, err := db.queries["select-games"].QueryContext(ctx, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*jeux.GameRecord
	for rows.Next() {
		var (
			rec           jeux.GameRecord
			srole, winner uint8
			playedAt      string
		)
		err = rows.Scan(
			&rec.Id,
			&rec.Source, &rec.Target,
			&srole, &winner,
			&rec.Moves,
			&rec.SourceRating, &rec.TargetRating,
			&playedAt)
		if err != nil {
			return nil, err
		}
		rec.SourceRole = jeux.Role(srole)
		rec.Winner = jeux.Role(winner)
		rec.PlayedAt, err = time.Parse(time.DateTime, playedAt)
		if err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (db *db) Shutdown() {
	if err := db.write.Close(); err != nil {
		log.Print(err)
	}
	if err := db.read.Close(); err != nil {
		log.Print(err)
	}
}

// Prepare initialises the store and installs it into the
// configuration.
func Prepare(c *conf.Conf) error {
	read, err := sql.Open("sqlite3", c.Database)
	if err != nil {
		return err
	}
	read.SetConnMaxLifetime(0)
	read.SetMaxIdleConns(1)

	write, err := sql.Open("sqlite3", c.Database)
	if err != nil {
		return err
	}
	write.SetConnMaxLifetime(0)
	write.SetMaxIdleConns(1)
	write.SetMaxOpenConns(1)

	db := &db{
		queries:  make(map[string]*sql.Stmt),
		commands: make(map[string]*sql.Stmt),
		write:    write,
		read:     read,
	}

	entries, err := sql_dir.ReadDir(".")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		base := path.Base(entry.Name())
		data, err := fs.ReadFile(sql_dir, entry.Name())
		if err != nil {
			return err
		}

		if strings.HasPrefix(base, "create-") {
			_, err = db.write.Exec(string(data))
			jeux.Debug.Printf("Executed %v", base)
		} else {
			query := strings.TrimSuffix(base, ".sql")
			if strings.HasPrefix(query, "select-") {
				db.queries[query], err = db.read.Prepare(string(data))
				jeux.Debug.Printf("Registered query %v", query)
			} else {
				db.commands[query], err = db.write.Prepare(string(data))
				jeux.Debug.Printf("Registered command %v", query)
			}
		}
		if err != nil {
			return err
		}
	}

	c.DB = db
	return nil
}
