// cmd/migrate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/golang-migrate/migrate/v4"

	"wallet-ledger/internal/config"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

var (
	cli = kingpin.New("migrate", "Manage the wallet ledger database schema.")

	upCmd    = cli.Command("up", "Apply all pending migrations.")
	downCmd  = cli.Command("down", "Roll back migrations.")
	downStep = downCmd.Flag("steps", "Number of migrations to roll back.").Short('n').Default("1").Int()

	versionCmd = cli.Command("version", "Print the current schema version.")

	forceCmd     = cli.Command("force", "Set the schema version without running migrations, clearing the dirty flag.")
	forceVersion = forceCmd.Arg("version", "Version to record.").Required().Int()
)

func main() {
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)
	logger := util.GetLogger()

	conn, err := db.NewPostgresDB(context.Background(), cfg.DB, logger)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	m, err := db.NewMigrator(conn.DB)
	if err != nil {
		logger.Error("Failed to prepare migrations", "error", err)
		os.Exit(1)
	}

	switch command {
	case upCmd.FullCommand():
		err = m.Up()
	case downCmd.FullCommand():
		err = m.Steps(-*downStep)
	case forceCmd.FullCommand():
		err = m.Force(*forceVersion)
	case versionCmd.FullCommand():
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			logger.Info("No migrations applied")
			return
		}
		if verr != nil {
			logger.Error("Failed to read schema version", "error", verr)
			os.Exit(1)
		}
		logger.Info("Schema version", "version", version, "dirty", dirty)
		return
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	logger.Info("Migration complete", "command", command)
}
