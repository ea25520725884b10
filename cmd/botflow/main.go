// Command botflow runs the webhook pipeline service and its tooling.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
