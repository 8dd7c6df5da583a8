package main

import (
	"os"

	"github.com/AlfredBerg/optionstrip-monitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
