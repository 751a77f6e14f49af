// Package main provides the admin terminal dashboard for the game daemon.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arukh89/bitcoin-block/internal/tui"

	"github.com/joho/godotenv"
)

func main() {
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	apiURL := flag.String("api", envOr("GAME_API_URL", "http://localhost:8080"), "base URL of the game daemon")
	token := flag.String("token", os.Getenv("ADMIN_TOKEN"), "admin capability token")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "warning: no admin token set, lifecycle commands will be rejected")
	}

	if err := tui.Run(tui.NewClient(*apiURL, *token)); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
