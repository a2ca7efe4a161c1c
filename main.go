package main

import (
	"log"

	"github.com/powergrid-labs/blackoutd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("blackoutd: %v", err)
	}
}
