// Command checkout-cli drives a checkout service from a terminal: it creates charges,
// reads and watches their status, sends confirmations and works with the Kafka topics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
