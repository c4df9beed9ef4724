package main

import (
	"log"

	"cache-mate/internal/app"
)

// @title cache-mate API
// @version 1.0
// @description Distributed cache access layer over Redis hashes with synced local snapshots.
// @BasePath /
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
