package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/streamspot/backend/internal/app"
)

func main() {
	// Missing .env is fine in production where the environment is set
	// directly.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
