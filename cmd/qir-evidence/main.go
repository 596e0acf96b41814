// Command qir-evidence drafts quarterly incident review sections grounded in
// approved evidence, using a local Ollama endpoint.
package main

import (
	"os"

	"github.com/custodia-labs/qir-evidence/internal/adapters/driving/cli"
)

func main() {
	cli.SetWire(wire)
	os.Exit(cli.Execute())
}
