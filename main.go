package main

import (
	"os"

	"github.com/moratsam/quantis-extractor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
