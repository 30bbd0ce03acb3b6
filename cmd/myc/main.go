package main

import (
	"os"

	"github.com/bnema/mycelium-pulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
