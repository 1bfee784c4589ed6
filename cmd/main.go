package main

import (
	"os"

	"github.com/SamuelNikhil/QuizWall-game/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
