// Package migrations embeds the SQL schema of the trigger store and applies it
// with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

func setup() error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Command runs a single goose command against db. Commands taking a target
// version (up-to, down-to) read it from args[0].
func Command(db *sql.DB, cmd string, args []string) error {
	if err := setup(); err != nil {
		return err
	}

	var err error
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "up-to", "down-to":
		var version int64
		if version, err = versionArg(cmd, args); err != nil {
			return err
		}
		if cmd == "up-to" {
			err = goose.UpTo(db, ".", version)
		} else {
			err = goose.DownTo(db, ".", version)
		}
	case "down":
		err = goose.Down(db, ".")
	case "redo":
		err = goose.Redo(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func versionArg(cmd string, args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s: target version is required", cmd)
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s: invalid version %q", cmd, args[0])
	}
	return v, nil
}
