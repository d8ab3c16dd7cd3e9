// Command seed populates the database with development data.
package main

import (
	"flag"
	"log"
	"os"

	"careervivid/internal/config"
	"careervivid/internal/database"
	"careervivid/internal/seed"

	"gopkg.in/yaml.v3"
)

func main() {
	profile := flag.String("profile", "", "path to a yaml seed profile")
	numUsers := flag.Int("users", 0, "number of users to create")
	numPosts := flag.Int("posts", 0, "number of posts to create")
	clean := flag.Bool("clean", false, "delete existing rows first")
	flag.Parse()

	var opts seed.Options
	if *profile != "" {
		data, err := os.ReadFile(*profile)
		if err != nil {
			log.Fatalf("Failed to read seed profile: %v", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			log.Fatalf("Failed to parse seed profile: %v", err)
		}
	}

	// Flags override the profile.
	if *numUsers > 0 {
		opts.NumUsers = *numUsers
	}
	if *numPosts > 0 {
		opts.NumPosts = *numPosts
	}
	if *clean {
		opts.ShouldClean = true
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
