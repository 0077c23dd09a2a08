package main

import (
	"os"

	"github.com/campusforge/fabric/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
