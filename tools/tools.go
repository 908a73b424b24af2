//go:build tools

// Package tools pins the goose CLI so migrations can be run by hand against
// the SQL the server embeds:
//
//	go run github.com/pressly/goose/v3/cmd/goose -dir internal/adapters/postgres/migrations postgres "$DATABASE_URL" status
package tools

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
