package main

import (
	"os"

	"github.com/storyloom/storyloom/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
