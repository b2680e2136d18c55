// Web Interface
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
	"embed"
	"fmt"
	"html/template"
	"time"

	"go-jeux"
)

//go:embed *.tmpl
var html embed.FS

var (
	// Template manager
	tmpl *template.Template

	// Custom template functions
	funcs = template.FuncMap{
		"timefmt": func(t time.Time) string {
			s := time.Since(t).Round(time.Second)
			switch {
			case s < 5*time.Second:
				return "now"
			case s < time.Minute:
				return fmt.Sprintf("%.0fs ago", s.Seconds())
			case s < time.Hour:
				return fmt.Sprintf("%.0fm ago", s.Minutes())
			default:
				return t.Format(time.Stamp)
			}
		},
		"result": func(rec *jeux.GameRecord) string {
			switch rec.Winner {
			case jeux.NONE:
				return "draw"
			case rec.SourceRole:
				return rec.Source + " won"
			default:
				return rec.Target + " won"
			}
		},
		"now": func() string {
			return time.Now().Format(time.RFC3339)
		},
	}
)
