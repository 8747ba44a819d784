package main

import (
	"os"

	"jichul/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]...))
}
