package main

import (
	"os"

	gemicmder "github.com/perpetual-s/gemi/cmd/gemi"
)

func main() {
	cmd := gemicmder.NewGemiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
