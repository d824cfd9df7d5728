package main

import (
	"os"

	"github.com/b-open-io/stopclock/cmd/stopclock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
