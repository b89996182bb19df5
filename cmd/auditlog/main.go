package main

import (
	"os"

	"github.com/mickamy/auditlog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
