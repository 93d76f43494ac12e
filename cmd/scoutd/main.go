// Command scoutd is Scout's entry point: a single binary providing the
// serve, sweep, and version subcommands documented in internal/cli.
package main

import "github.com/coleifer/scout/internal/cli"

func main() {
	cli.Execute()
}
