// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/config"
	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/node/metrics"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

const metricsInterval = 5 * time.Second

type chainController struct {
	logger zerolog.Logger
	cfg    *config.Config

	wg      sync.WaitGroup
	db      database.DB
	state   *chainstate.ChainState
	metrics metrics.IMetricManager
}

// Controller returns the controller of one chainstated process.
func Controller(logger zerolog.Logger) *chainController {
	return &chainController{logger: logger}
}

// State returns the chain state once Run has loaded it.
func (chainCtl *chainController) State() *chainstate.ChainState {
	return chainCtl.state
}

// Run loads the header store, imports the configured header file and serves
// metrics until ctx is done.  The chain state and the database are closed
// before Run returns.
func (chainCtl *chainController) Run(ctx context.Context, cfg *config.Config) error {
	chainCtl.cfg = cfg
	if err := chainCtl.start(); err != nil {
		chainCtl.shutdown()
		return err
	}

	if cfg.MetricsAddr != "" {
		chainCtl.wg.Add(1)
		go func() {
			defer chainCtl.wg.Done()
			if err := chainCtl.runMetricsServer(ctx); err != nil {
				chainCtl.logger.Error().Err(err).Msg("listen metrics server")
			}
		}()
	}

	<-ctx.Done()
	chainCtl.wg.Wait()
	return chainCtl.shutdown()
}

func (chainCtl *chainController) start() error {
	dbCtl := DBCtl{logger: chainCtl.logger}
	db, err := dbCtl.loadHeaderDB(chainCtl.cfg)
	if err != nil {
		return err
	}
	chainCtl.db = db

	chainCtl.state = chainstate.New(chainstate.Config{
		Params: chainCtl.cfg.Params(),
		DB:     db,
		OnPersistError: func(tip *blocknode.BlockNode, err error) {
			chainCtl.logger.Error().Err(err).Int32("height", tip.Height()).
				Msg("Unable to persist the common tip")
		},
	})
	if err := chainCtl.state.Initialize(); err != nil {
		return err
	}

	tipsManager := chainCtl.state.Tips()
	for _, id := range chainCtl.cfg.Providers {
		if err := tipsManager.RegisterProvider(id); err != nil {
			return err
		}
	}

	if chainCtl.cfg.ImportHeaders != "" {
		if err := chainCtl.importHeaders(chainCtl.cfg.ImportHeaders); err != nil {
			return err
		}
	}

	best, err := chainCtl.state.BestSnapshot()
	if err != nil {
		return err
	}
	chainCtl.logger.Info().Int32("height", best.Height).Stringer("hash", best.Hash).
		Int32("common_tip", best.CommonTip).Int("headers", chainCtl.state.HeaderCount()).
		Msg("Chain state loaded")
	return nil
}

// importHeaders feeds every header of the file to the chain state.  Known
// headers are skipped.  Each registered provider then reports the best tip
// as persisted.
func (chainCtl *chainController) importHeaders(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open header file")
	}
	defer file.Close()

	headers, err := wire.ReadHeaders(file)
	if err != nil {
		return errors.Wrapf(err, "read header file %s", path)
	}

	var accepted, extended int
	for _, header := range headers {
		_, isBest, err := chainCtl.state.ProcessHeader(header)
		if chainstate.IsErrorCode(err, chainstate.ErrDuplicateHeader) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "import header %s", header.BlockHash())
		}
		accepted++
		if isBest {
			extended++
		}
	}
	chainCtl.logger.Info().Int("read", len(headers)).Int("accepted", accepted).
		Int("best_chain", extended).Msg("Headers imported")

	tip := chainCtl.state.Index().Tip()
	tipsManager := chainCtl.state.Tips()
	for _, id := range tipsManager.Providers() {
		if err := tipsManager.CommitTipPersisted(id, tip); err != nil {
			return err
		}
	}
	return nil
}

func (chainCtl *chainController) runMetricsServer(ctx context.Context) error {
	chainCtl.logger.Info().Str("addr", chainCtl.cfg.MetricsAddr).Msg("Metrics Enabled")

	registry := prometheus.NewRegistry()
	chainCtl.metrics = metrics.Metrics(ctx, metricsInterval, registry)
	chainCtl.metrics.Add(metrics.ChainMetrics(chainCtl.state, chainCtl.cfg.Net, registry,
		chainCtl.logger.With().Str("ctx", "metrics").Logger()))

	router := mux.NewRouter()
	RegisterRoutes(router, chainCtl.state, chainCtl.metrics.Handler(), chainCtl.logger)
	server := &http.Server{Addr: chainCtl.cfg.MetricsAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (chainCtl *chainController) shutdown() error {
	var result error
	if chainCtl.state != nil {
		if err := chainCtl.state.Close(); err != nil {
			chainCtl.logger.Error().Err(err).Msg("Unable to stop chain state")
			result = err
		}
	}
	if chainCtl.db != nil {
		if err := chainCtl.db.Close(); err != nil {
			chainCtl.logger.Error().Err(err).Msg("Unable to close header database")
			if result == nil {
				result = err
			}
		}
	}
	return result
}
