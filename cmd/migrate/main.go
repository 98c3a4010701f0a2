package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"byund.io/internal/config"
	"byund.io/internal/migrate"
	"byund.io/internal/obs"
	"byund.io/internal/store/pg"
)

func main() {
	var (
		dsn     = flag.String("dsn", "", "PostgreSQL DSN (defaults to database.dsn / BYUND_DATABASE_DSN)")
		verbose = flag.Bool("v", false, "Log every applied migration")
		timeout = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := obs.InitLogger(obs.LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if *dsn == "" {
		*dsn = cfg.Database.DSN
	}
	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or BYUND_DATABASE_DSN")
	}
	if flag.NArg() == 0 {
		log.Fatal("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	mgr, err := migrate.NewManager(db, pg.MigrationsFS(), migrate.WithVerbose(*verbose))
	if err != nil {
		log.WithError(err).Fatal("init migrations")
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		var applied []int64
		applied, err = mgr.Up(ctx)
		if err == nil {
			log.WithField("versions", applied).Info("migrations applied")
		}
	case "down":
		var version int64
		version, err = mgr.Down(ctx)
		if err == nil {
			log.WithField("version", version).Info("migration rolled back")
		}
	case "status":
		var lines []string
		lines, err = mgr.Status(ctx)
		if err == nil {
			for _, line := range lines {
				fmt.Fprintln(os.Stdout, line)
			}
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd).Fatal("migrate failed")
	}
}
