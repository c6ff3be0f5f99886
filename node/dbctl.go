// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/config"
	"gitlab.com/jaxnet/chainstate/database"
)

type DBCtl struct {
	logger zerolog.Logger
}

// loadHeaderDB loads (or creates when needed) the header database taking
// into account the selected database backend and returns a handle to it.
func (ctrl *DBCtl) loadHeaderDB(cfg *config.Config) (database.DB, error) {
	dbPath := cfg.DBPath()
	ctrl.logger.Info().Str("path", dbPath).Str("type", cfg.DBType).Msg("Loading header database")

	db, err := database.Open(cfg.DBType, dbPath)
	if err != nil {
		// Return the error if it's not because the database doesn't exist.
		if !database.IsErrorCode(err, database.ErrDBDoesNotExist) {
			return nil, err
		}

		// Create the db if it does not exist.
		if err = os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, err
		}

		ctrl.logger.Info().Str("path", dbPath).Msg("Creating header database")
		db, err = database.Create(cfg.DBType, dbPath)
		if err != nil {
			return nil, err
		}
	}

	ctrl.logger.Info().Msg("Header database loaded")
	return db, nil
}
