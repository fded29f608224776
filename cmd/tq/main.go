package main

import (
	"github.com/joho/godotenv"

	"taskquest/cmd/tq/root"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()
	root.Execute()
}
