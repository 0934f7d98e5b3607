package main

import (
	"os"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
