// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/config"
	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/node/chaingen"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

func testConfig(t *testing.T, dbType string) *config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DBType = dbType
	cfg.Net = string(chaincfg.NetRegtest)
	cfg.NoFileLogging = true
	cfg.Providers = []string{"beacon", "shard-1"}
	return &cfg
}

func writeHeaderFile(t *testing.T, n int) string {
	gen := chaingen.New(chaincfg.NetRegtest.Params(), nil)
	gen.Stake = chaingen.EveryNth(3)

	var buf bytes.Buffer
	require.NoError(t, wire.WriteHeaders(&buf, chaingen.Headers(gen.Chain(n)[1:])))

	path := filepath.Join(t.TempDir(), "headers.dat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestControllerImportsAndPersists(t *testing.T) {
	for _, dbType := range []string{"leveldb", "badger"} {
		t.Run(dbType, func(t *testing.T) {
			cfg := testConfig(t, dbType)
			cfg.ImportHeaders = writeHeaderFile(t, 40)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			ctl := Controller(corelog.Disabled)
			require.NoError(t, ctl.Run(ctx, cfg))
			assert.Equal(t, int32(40), ctl.State().Index().Tip().Height())

			// The same file again only carries known headers.
			restarted := Controller(corelog.Disabled)
			restarted.cfg = cfg
			require.NoError(t, restarted.start())
			defer restarted.shutdown()

			state := restarted.State()
			assert.Equal(t, 41, state.HeaderCount())
			best, err := state.BestSnapshot()
			require.NoError(t, err)
			assert.Equal(t, int32(40), best.Height)
			assert.Equal(t, int32(40), best.CommonTip)
		})
	}
}

func TestControllerWithoutImport(t *testing.T) {
	cfg := testConfig(t, "leveldb")
	cfg.Providers = nil

	ctl := Controller(corelog.Disabled)
	ctl.cfg = cfg
	require.NoError(t, ctl.start())
	defer ctl.shutdown()

	best, err := ctl.State().BestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, int32(0), best.Height)
	assert.Equal(t, *cfg.Params().GenesisHash(), best.Hash)
}

func TestControllerRejectsBadImport(t *testing.T) {
	cfg := testConfig(t, "leveldb")
	cfg.ImportHeaders = filepath.Join(t.TempDir(), "missing.dat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Controller(corelog.Disabled).Run(ctx, cfg))

	// Headers of another network are orphans here.
	gen := chaingen.New(chaincfg.NetTestnet.Params(), nil)
	var buf bytes.Buffer
	require.NoError(t, wire.WriteHeaders(&buf, chaingen.Headers(gen.Chain(3)[1:])))
	cfg.ImportHeaders = filepath.Join(t.TempDir(), "testnet.dat")
	require.NoError(t, os.WriteFile(cfg.ImportHeaders, buf.Bytes(), 0644))
	assert.Error(t, Controller(corelog.Disabled).Run(ctx, cfg))
}
