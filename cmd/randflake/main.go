// randflake - command-line tool for minting and inspecting randflake IDs.
//
// Usage:
//
//	randflake generate [flags]       Generate IDs
//	randflake parse <id>             Decode an ID into timestamp, machine id and sequence
//	randflake encode <id> <format>   Convert an ID to another encoding
//	randflake bench                  Measure generation throughput
//	randflake version                Print the version
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
