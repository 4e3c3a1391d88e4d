// Package main is the entry point for the gatekit authentication gateway.
package main

import (
	"os"

	"github.com/gatekit/gatekit/cmd/gatekit/app"
	"github.com/gatekit/gatekit/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
