// mcpan is a command-line client for the MetaCPAN API.
package main

import (
	"os"

	"github.com/jparise/mcpan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
