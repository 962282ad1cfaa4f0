package main

import (
	"os"

	"github.com/ttsim-dev/soep-preparation-sub000/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
