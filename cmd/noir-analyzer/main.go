// Command noir-analyzer reports unused functions in Noir projects.
package main

import "github.com/mvp-joe/noir-analyzer/internal/cli"

func main() {
	cli.Execute()
}
