package main

import (
	"os"

	"github.com/alpacahq/recordstore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
