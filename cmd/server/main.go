package main

import (
	"os"

	"github.com/eslsoft/quizstats/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
