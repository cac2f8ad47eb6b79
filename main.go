// The main package for the indexpilot executable.
package main

import "github.com/indexpilot/indexpilot/cmd"

func main() {
	cmd.Execute()
}
