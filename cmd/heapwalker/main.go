package main

import (
	"os"

	"github.com/heapwalker/cmd/heapwalker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
