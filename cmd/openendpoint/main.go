package main

import (
	"os"

	"github.com/openendpoint/openendpoint/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
