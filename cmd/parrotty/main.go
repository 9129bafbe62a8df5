package main

import (
	"os"

	"github.com/jwgranville/parrotty/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
