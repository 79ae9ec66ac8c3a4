package main

import (
	"os"

	"github.com/bjornbryggman/eu4-modding-tools/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
