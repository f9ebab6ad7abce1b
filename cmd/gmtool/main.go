// Package main provides gmtool, the game-master command line.
package main

import (
	"os"

	"github.com/cory-johannsen/digigm/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
