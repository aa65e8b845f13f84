// Program as5600ctl reads, configures and programs an AS5600 magnetic angle
// sensor from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openPeriphBus).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
