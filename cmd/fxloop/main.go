package main

import (
	"os"

	"github.com/rustyeddy/fxloop/cmd/fxloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
