// Package main is the archivesearch entry point.
// Commands are built with cobra; configuration is read through viper.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/archivesearch/cmd/archivesearch/commands"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	rootCmd := commands.NewRootCmd(version, buildTime)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
