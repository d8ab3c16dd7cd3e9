// Command migrate applies the schema explicitly. Production deployments run
// this instead of relying on AutoMigrate at server startup.
package main

import (
	"flag"
	"fmt"
	"log"

	"careervivid/internal/config"
	"careervivid/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Println("schema migration applied")
	return nil
}
