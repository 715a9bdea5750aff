package main

import (
	"os"

	"expensy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
