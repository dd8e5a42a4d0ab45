package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/learnhub/config"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := run(log, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			log.Error(err)
		}
		os.Exit(1)
	}
}

func run(log *logrus.Logger, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var cfg struct {
		DB config.DB
	}
	if _, err := conf.Parse("LEARNHUB", &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening db connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("reaching the database: %w", err)
	}

	cli := commandLine{
		log:     log,
		users:   dbUsers{db: db},
		migrate: func() error { return database.Migrate(db) },
	}
	return cli.run(args)
}
