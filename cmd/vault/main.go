package main

import (
	"os"

	"github.com/roach88/vault/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
