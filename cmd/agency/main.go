package main

import (
	"os"

	"github.com/brightline-agency/agency/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
