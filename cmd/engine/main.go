package main

import (
	"os"

	"github.com/ducminhle1904/options-risk-engine/cmd/engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
