// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldb

import (
	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/database"
)

var log = corelog.Disabled

const dbType = "leveldb"

func init() {
	driver := database.NewPathDriver(dbType, openDB, func(logger zerolog.Logger) { log = logger })
	if err := database.RegisterDriver(driver); err != nil {
		panic("LevelDB driver registration: " + err.Error())
	}
}
