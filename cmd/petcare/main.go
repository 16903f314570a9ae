// Command petcare manages offline-first pet care records.
package main

import "github.com/mesh-intelligence/petcare/internal/cli"

func main() {
	cli.Execute()
}
