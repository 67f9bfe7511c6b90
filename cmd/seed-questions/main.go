package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skilldesk/skilldesk-backend/internal/catalog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/repository"
)

// seed-questions replaces the question catalog with the contents of a JSON
// file. The server loads the catalog once at startup, so restart it after
// seeding.
func main() {
	cfg := config.Load()

	var file string
	flag.StringVar(&file, "file", cfg.QuestionsFile, "Path to questions JSON file")
	flag.Parse()

	questions, err := catalog.LoadFile(file)
	if err != nil {
		log.Fatalf("Failed to read questions file: %v", err)
	}
	if len(questions) == 0 {
		log.Fatalf("Questions file %s is empty", file)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pool.Close()

	repo := repository.NewQuestionRepository(pool)
	if err := repo.ReplaceAll(ctx, questions); err != nil {
		log.Fatalf("Failed to replace questions: %v", err)
	}

	fmt.Printf("Seeded %d questions from %s\n", len(questions), file)
}
