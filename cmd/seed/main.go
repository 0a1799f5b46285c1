// Command seed populates the database with fake data for development.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/aquawaran/Clon-Official/internal/config"
	"github.com/aquawaran/Clon-Official/internal/database"
	"github.com/aquawaran/Clon-Official/internal/seed"

	"github.com/bwmarrin/snowflake"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("Failed to create id generator: %v", err)
	}

	s := seed.NewSeeder(db, node, *randSeed)
	if _, err := s.Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
