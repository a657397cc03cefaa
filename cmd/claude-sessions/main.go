package main

import (
	"os"

	"github.com/grovetools/claude-sessions/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
