package main

import (
	"fmt"
	"os"

	_ "github.com/dgarske/uart-monitor/logging"

	"github.com/dgarske/uart-monitor/cmd"
)

func main() {
	if err := cmd.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
