// Command typegraph administers object types, objects and their relations.
package main

import (
	"os"

	"github.com/mesh-intelligence/typegraph/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
