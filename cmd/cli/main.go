package main

import (
	"github.com/planforge-dev/planforge/internal/cli"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cli.Execute(version)
}
