// Package main provides the post-image CLI.
//
// It resolves images against a local JSON content fixture (or a DynamoDB
// table), caches resized variants in a local upload directory, and can
// serve the same API as the Lambda for local development.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
