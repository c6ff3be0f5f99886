// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/jaxnet/chainstate/config"
	"gitlab.com/jaxnet/chainstate/node"
)

const appVersion = "0.1.0"

func main() {
	// Work around defer not working after os.Exit()
	if err := chainstatedMain(); err != nil {
		fmt.Println("FATAL:", err)
		os.Exit(1)
	}
}

// chainstatedMain is the real main function for chainstated.  It is necessary
// to work around the fact that deferred functions do not run when os.Exit()
// is called.
func chainstatedMain() error {
	// Load configuration and parse command line.
	cfg, _, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Println("chainstated version", appVersion)
		return nil
	}

	logger, err := config.SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Info().Msg("Shutdown complete")

	// Show version at startup.
	logger.Info().Msgf("Version %s", appVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	sigChan := interruptListener(logger.With().Str("ctx", "interruptListener").Logger())
	go func() {
		<-sigChan
		logger.Info().Msg("propagate stop signal")
		cancel()
	}()

	controller := node.Controller(logger.With().Str("ctx", "NodeController").Logger())
	return controller.Run(ctx, cfg)
}
