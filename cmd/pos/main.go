package main

import (
	"os"

	"github.com/jhoicas/pos-ledger/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute())
}
