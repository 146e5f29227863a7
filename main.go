package main

import (
	"os"

	"github.com/adalundhe/greenroom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
