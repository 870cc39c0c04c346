package main

import (
	"os"

	"github.com/inkwellai/inkwell/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
