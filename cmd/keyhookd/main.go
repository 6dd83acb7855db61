// keyhookd - System-wide media key and shortcut capture for macOS
//
//	keyhookd run              Run the event tap daemon in the foreground
//	keyhookd status           Show permission and daemon state
//	keyhookd retry            Ask a running daemon to retry installing its tap
//	keyhookd stop             Stop a running daemon
//	keyhookd config show      Print the effective configuration
//	keyhookd config init      Write a default configuration file
//	keyhookd config validate  Check a configuration file
//	keyhookd config schema    Print the configuration JSON schema
package main

import (
	"fmt"
	"os"
	"runtime"
)

// The macOS main run loop belongs to the main thread. Locking here keeps
// the main goroutine on it so run can service that loop.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
