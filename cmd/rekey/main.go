package main

import (
	"os"

	"github.com/dshills/rekey/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
