package main

import (
	"os"

	"github.com/smhg/criteria/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
