// Command realmd serves the goRealm login surface and runs its operator tasks.
package main

import (
	"os"

	"github.com/MrEthical07/goRealm/cmd/realmd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
