// Schema migration runner. AutoMigrate in the API binary covers dev
// setups; deployments run the SQL migrations here so the row ownership
// constraints and indexes are exactly what migrations/ declares.

package main

import (
	"database/sql"
	"flag"
	"log"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"tourguard/api/internal/config"
)

func main() {
	var (
		dir  = flag.String("dir", "migrations", "migrations directory")
		down = flag.Bool("down", false, "roll back one migration instead of migrating up")
	)
	flag.Parse()

	cfg := config.Load()

	waitForDatabase(cfg.DatabaseURL)

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Migrate] Failed to init migrations: %v", err)
	}
	defer m.Close()

	if *down {
		if err := m.Steps(-1); err != nil {
			log.Fatalf("[Migrate] Rollback failed: %v", err)
		}
		log.Println("[Migrate] Rolled back one migration")
		return
	}

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Println("[Migrate] Schema already up to date")
			return
		}
		log.Fatalf("[Migrate] Migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	log.Printf("[Migrate] Schema migrated to version %d (dirty=%v)", version, dirty)
}

// waitForDatabase blocks until postgres accepts connections, so the
// runner works as a startup job next to the database container.
func waitForDatabase(dsn string) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("[Migrate] Invalid database URL: %v", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return
		}
		log.Printf("[Migrate] Waiting for database: %v", err)
		time.Sleep(2 * time.Second)
	}
	log.Fatalf("[Migrate] Database not reachable: %v", err)
}
