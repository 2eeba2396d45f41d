package main

import (
	"log"

	"flowtimer/internal/config"
	"flowtimer/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir))
	if err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	if len(applied) == 0 {
		log.Println("database is up to date")
		return
	}
	for _, name := range applied {
		log.Printf("applied %s", name)
	}
}
