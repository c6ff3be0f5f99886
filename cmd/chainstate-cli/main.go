// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/database"
	_ "gitlab.com/jaxnet/chainstate/database/bdb"
	_ "gitlab.com/jaxnet/chainstate/database/ldb"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/node/chainwork"
	"gitlab.com/jaxnet/chainstate/node/tips"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
)

const (
	flagNet     = "net"
	flagVerbose = "verbose"
	flagOut     = "out"
	flagIn      = "in"
	flagCount   = "count"
	flagStake   = "stake"
	flagPosBits = "pos-bits"
	flagDataDir = "datadir"
	flagDBType  = "dbtype"
	flagDump    = "dump"
)

func main() {
	app := &App{}
	cliApp := &cli.App{
		Name:     "chainstate-cli",
		Usage:    "inspect header chains and the hybrid chain work",
		Flags:    app.InitFlags(),
		Before:   app.InitCfg,
		Commands: app.getCommands(),
	}

	err := cliApp.Run(os.Args)
	if err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

type App struct {
	params *chaincfg.Params
}

func (app *App) InitFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagNet,
			Usage: "network: [mainnet|testnet|regtest]",
			Value: string(chaincfg.NetRegtest),
		},
		&cli.BoolFlag{
			Name:    flagVerbose,
			Aliases: []string{"v"},
			Usage:   "log debug output to stderr",
		},
	}
}

func (app *App) InitCfg(c *cli.Context) error {
	params, err := chaincfg.ParamsByName(c.String(flagNet))
	if err != nil {
		return cli.Exit(err, 1)
	}
	app.params = params

	if c.Bool(flagVerbose) {
		logCfg := corelog.DefaultConfig()
		chainwork.UseLogger(corelog.New("WORK", zerolog.DebugLevel, logCfg))
		chainstate.UseLogger(corelog.New("CHST", zerolog.DebugLevel, logCfg))
		tips.UseLogger(corelog.New("TIPS", zerolog.DebugLevel, logCfg))
		database.UseLogger(corelog.New("BCDB", zerolog.DebugLevel, logCfg))
	}
	return nil
}

func (app *App) getCommands() cli.Commands {
	return []*cli.Command{
		{
			Name:  "gen",
			Usage: "generate a header chain file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "output file", Required: true},
				&cli.IntFlag{Name: flagCount, Aliases: []string{"n"}, Usage: "number of headers after genesis", Value: 1000},
				&cli.StringFlag{Name: flagStake, Usage: "stake pattern, 'S' marks a PoS block, e.g. WWS"},
				&cli.StringFlag{Name: flagPosBits, Usage: "compact bits of PoS blocks in hex"},
			},
			Action: app.genCmd,
		},
		{
			Name:  "work",
			Usage: "write per-height chain work of a header file as CSV",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagIn, Aliases: []string{"i"}, Usage: "header file", Required: true},
				&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "CSV file, stdout when empty"},
			},
			Action: app.workCmd,
		},
		{
			Name:  "tip",
			Usage: "show the best chain tip and the last common tip of a header store",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagDataDir, Aliases: []string{"b"}, Usage: "data directory", Required: true},
				&cli.StringFlag{Name: flagDBType, Usage: "database type: [leveldb|badger]", Value: "leveldb"},
				&cli.BoolFlag{Name: flagDump, Usage: "dump the full snapshot"},
			},
			Action: app.tipCmd,
		},
		{
			Name:   "params",
			Usage:  "show the chain work parameters of the network",
			Action: app.paramsCmd,
		},
	}
}
