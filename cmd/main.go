package main

import (
	"os"

	"whatsapp-quiz-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
