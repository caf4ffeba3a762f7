package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/yourusername/meeting-intelligence/internal/config"
	"github.com/yourusername/meeting-intelligence/internal/database"
	"github.com/yourusername/meeting-intelligence/internal/logger"
)

func main() {
	// Parse command line flags
	seedAll := flag.Bool("all", false, "Seed all demo data (leads, a demo meeting)")
	seedLeads := flag.Bool("leads", true, "Seed demo leads (default: true)")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// Not an error - we might be using system env vars
	}

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Init(cfg.IsDevelopment())
	log := logger.WithComponent("seed")

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Run migrations first to ensure schema is up to date
	log.Info().Msg("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Determine what to seed
	if *seedAll {
		log.Info().Msg("Seeding all demo data...")
		database.SeedAll(db)
	} else if *seedLeads {
		log.Info().Msg("Seeding demo leads...")
		database.SeedLeads(db)
	} else {
		log.Warn().Msg("No seed operations specified. Use -all or -leads flags.")
		os.Exit(1)
	}

	log.Info().Msg("Database seeding completed successfully")
}
