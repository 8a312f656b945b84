// Command constitution operates a constitution ledger stored in a local data
// directory.
//
// Usage:
//
//	constitution init <creator-address>
//	constitution distribute <amount> [--caller addr]
//	constitution can-spend <amount>
//	constitution status
//	constitution pause|resume --caller <creator-address>
//	constitution set-limit <amount> --caller <creator-address>
//	constitution keygen
//	constitution payouts
//	constitution payout-status <txid>
//	constitution config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
