// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"gitlab.com/jaxnet/chainstate/config"
	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/node/chaingen"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/pow"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// workRow is one line of the work report.
type workRow struct {
	Height    int32  `csv:"height"`
	Hash      string `csv:"hash"`
	PoS       bool   `csv:"pos"`
	Bits      string `csv:"bits"`
	BlockWork string `csv:"block_work"`
	WorkSum   string `csv:"work_sum"`
	Factor    string `csv:"factor"`
}

func (app *App) genCmd(c *cli.Context) error {
	var posBits uint32
	if str := c.String(flagPosBits); str != "" {
		bits, err := strconv.ParseUint(strings.TrimPrefix(str, "0x"), 16, 32)
		if err != nil {
			return cli.Exit(errors.Wrap(err, "invalid pos bits"), 1)
		}
		posBits = uint32(bits)
	}

	headers := genHeaders(app.params, c.Int(flagCount), c.String(flagStake), posBits)

	file, err := os.Create(c.String(flagOut))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := wire.WriteHeaders(w, headers); err != nil {
		return cli.Exit(err, 1)
	}
	if err := w.Flush(); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("wrote %d headers to %s\n", len(headers), c.String(flagOut))
	return nil
}

// genHeaders builds count headers on top of the genesis of params.  A zero
// posBits keeps the pow limit for staked blocks.
func genHeaders(params *chaincfg.Params, count int, stake string, posBits uint32) []*wire.BlockHeader {
	gen := chaingen.New(params, nil)
	if stake != "" {
		gen.Stake = chaingen.Pattern(stake)
	}
	if posBits != 0 {
		gen.PosBits = posBits
	}
	return chaingen.Headers(gen.Chain(count)[1:])
}

func (app *App) workCmd(c *cli.Context) error {
	file, err := os.Open(c.String(flagIn))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer file.Close()

	headers, err := wire.ReadHeaders(bufio.NewReader(file))
	if err != nil {
		return cli.Exit(errors.Wrap(err, "read headers"), 1)
	}

	rows, err := workReport(app.params, headers)
	if err != nil {
		return cli.Exit(err, 1)
	}

	var out io.Writer = os.Stdout
	if path := c.String(flagOut); path != "" {
		csvFile, err := os.Create(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer csvFile.Close()
		out = csvFile
	}
	return gocsv.Marshal(rows, out)
}

// workReport processes the headers in memory and returns one row per block
// of the resulting best chain, genesis included.
func workReport(params *chaincfg.Params, headers []*wire.BlockHeader) ([]*workRow, error) {
	state := chainstate.New(chainstate.Config{Params: params})
	if err := state.Initialize(); err != nil {
		return nil, err
	}
	defer state.Close()

	for _, header := range headers {
		_, _, err := state.ProcessHeader(header)
		if err != nil && !chainstate.IsErrorCode(err, chainstate.ErrDuplicateHeader) {
			return nil, err
		}
	}

	index := state.Index()
	engine := state.Engine()
	rows := make([]*workRow, 0, index.Height()+1)

	it := index.EnumerateToTip(index.Genesis())
	for it.Next() {
		node := it.Node()
		blockWork, err := engine.BlockWork(node)
		if err != nil {
			return nil, err
		}
		factor, err := engine.AdjustmentFactor(node)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &workRow{
			Height:    node.Height(),
			Hash:      node.GetHash().String(),
			PoS:       node.IsProofOfStake(),
			Bits:      fmt.Sprintf("%08x", node.Bits()),
			BlockWork: blockWork.String(),
			WorkSum:   node.WorkSum().String(),
			Factor:    factor.String(),
		})
	}
	return rows, nil
}

func (app *App) tipCmd(c *cli.Context) error {
	cfg := config.Default()
	cfg.DataDir = c.String(flagDataDir)
	cfg.DBType = c.String(flagDBType)
	cfg.Net = c.String(flagNet)

	db, err := database.Open(cfg.DBType, cfg.DBPath())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	best, err := readBestState(app.params, db)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool(flagDump) {
		spew.Dump(best)
		return nil
	}
	fmt.Printf("best:       %d %s\n", best.Height, best.Hash)
	fmt.Printf("work:       %s\n", best.WorkSum)
	fmt.Printf("common tip: %d\n", best.CommonTip)
	return nil
}

// readBestState loads the stored headers and returns the best snapshot.
func readBestState(params *chaincfg.Params, db database.DB) (*chainstate.BestState, error) {
	state := chainstate.New(chainstate.Config{Params: params, DB: db})
	if err := state.Initialize(); err != nil {
		return nil, err
	}
	defer state.Close()
	return state.BestSnapshot()
}

func (app *App) paramsCmd(*cli.Context) error {
	params := app.params
	bits := params.PowLimitBits
	fmt.Printf("network:          %s\n", params.Name)
	fmt.Printf("genesis:          %s\n", params.GenesisHash())
	fmt.Printf("hybrid consensus: %v\n", params.HybridConsensus)
	fmt.Printf("scaling interval: %d\n", params.ScalingInterval())
	fmt.Printf("pow limit:        bits=%08x target=%064x work=%s\n",
		bits, pow.CompactToBig(bits), pow.CalcWork(bits))
	return nil
}
