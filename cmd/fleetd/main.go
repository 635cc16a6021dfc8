// Command fleetd drives a BSD jail fleet through its lifecycle: up, down,
// restart, cleanup, check, build, and ps against a Fleet Config document.
package main

import "os"

func main() {
	os.Exit(Execute())
}
