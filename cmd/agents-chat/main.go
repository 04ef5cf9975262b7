package main

import (
	"os"

	"agents-chat/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
