package main

import (
	"github.com/joho/godotenv"

	"github.com/MeKo-Tech/omr/cmd/omr/cmd"
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()
	cmd.Execute()
}
