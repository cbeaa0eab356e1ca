package main

import (
	"fmt"
	"os"

	"github.com/danmuck/adbctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "adbctl: %v\n", err)
		os.Exit(1)
	}
}
