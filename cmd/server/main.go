// Package main implements the entry point for the Taskify API server,
// a personal task-management REST API with JWT-based authentication.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
)

func main() {
	skipMigrations := flag.Bool("skip-migrations", false, "do not apply database migrations at startup")
	flag.Parse()

	fmt.Println("Taskify API Server Starting...")

	app, err := initializeApp(*skipMigrations)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		app.logger.Error("Server exited with error", "error", err)
		app.cleanup()
		log.Fatalf("Server error: %v", err)
	}
}
