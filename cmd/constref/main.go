// # cmd/constref/main.go
package main

import (
	"os"

	"constref/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
