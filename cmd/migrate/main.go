package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-pos/internal/config"
	"ms-pos/internal/database/migrations"
	"ms-pos/internal/order/db"
)

// Dev and ops tool: run SQL migrations up/down, or rebuild a throwaway
// schema from the bun models and seed the demo table pool.
func main() {
	var (
		down     = flag.Bool("down", false, "roll back all migrations")
		seed     = flag.Bool("seed", false, "run seed migrations too")
		devReset = flag.Bool("dev-reset", false, "drop and recreate the schema from the models, then seed the demo table pool")
		adminID  = flag.String("admin", "demo-admin", "tenant to seed with -dev-reset")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()

	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if *devReset {
		log.Println("Rebuilding schema from models...")
		if err := db.ResetSchema(ctx, bunDB); err != nil {
			log.Fatalf("Failed to reset schema: %v", err)
		}
		log.Printf("Seeding table pool for tenant %s...", *adminID)
		if err := db.SeedTables(ctx, bunDB, *adminID, 12); err != nil {
			log.Fatalf("Failed to seed tables: %v", err)
		}
		log.Println("Done.")
		return
	}

	opts := migrations.DefaultOptions()
	opts.SeedData = *seed
	runner := migrations.NewRunner(bunDB, opts)
	defer runner.Close()

	if *down {
		log.Println("Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
	} else {
		if err := runner.RunMigrations(); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}
	log.Println("Done.")
}
