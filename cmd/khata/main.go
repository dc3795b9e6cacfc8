// Command khata is a personal udhar/vasuli ledger.
package main

import (
	"os"

	"github.com/udhar-khata/khata/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
