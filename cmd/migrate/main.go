package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"twitch_notify/migrations"
)

const usage = `Usage: migrate [-db path] [-v] <command> [version]

Commands:
  up              Migrate to the latest version
  up-one          Migrate one version up
  up-to <v>       Migrate up to version v
  down            Roll back one version
  down-to <v>     Roll back down to version v
  redo            Roll back and re-apply the latest version
  status          Show migration status
  version         Show current version
  reset           Roll back all migrations`

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")
	verbose := flag.Bool("v", false, "log every applied statement")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetVerbose(*verbose)
	if err := migrations.Command(db, args[0], args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
