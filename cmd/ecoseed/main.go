// Command ecoseed runs and administers the Eco-Seed points ledger.
package main

import (
	"os"

	"github.com/xraph/ecoseed/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
