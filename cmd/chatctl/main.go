// Package main is the entry point for the chatctl client.
package main

import (
	"os"

	"github.com/capitalize-ai/conversational-client/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
