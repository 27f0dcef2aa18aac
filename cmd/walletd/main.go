// Package main provides walletd, the command line front end of the passkey
// wallet: WebAuthn payload inspection and the upgrade-retry bridge service.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
