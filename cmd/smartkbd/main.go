// smartkbd watches what is typed and fixes words typed on the wrong
// keyboard layout.
//
//	smartkbd run               Capture the keyboard and correct as you type
//	smartkbd check <words...>  Show the corrections typing words would produce
//	smartkbd devices           Report keyboard capture and injection support
//	smartkbd config show       Print the effective configuration
//	smartkbd config init       Write a default configuration file
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
