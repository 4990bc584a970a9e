// The main package for the routescan executable.
package main

import (
	"github.com/JakeFAU/site-route-discovery/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
