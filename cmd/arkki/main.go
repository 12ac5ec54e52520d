// Package main is the entry point for arkki.
package main

import (
	"os"

	"github.com/fgeck/arkki/internal/services/dispatcher"
)

func main() {
	os.Exit(dispatcher.ExitCode(Execute()))
}
