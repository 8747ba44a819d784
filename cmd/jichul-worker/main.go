// Command jichul-worker runs the Google Sheets mirror. It is the same as
// "jichul worker" and exists so the worker can ship as its own container.
package main

import (
	"os"

	"jichul/internal/cli"
)

func main() {
	os.Exit(cli.Execute(append([]string{"worker"}, os.Args[1:]...)...))
}
