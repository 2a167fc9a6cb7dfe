// Package main is the command line client of the conversion service.
package main

import (
	"log"

	"github.com/convertey/convertey-api/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
