// Command ferry downloads and uploads files over HTTP and OCI registries.
package main

import (
	"os"

	"github.com/meigma/ferry/cmd/ferry/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
