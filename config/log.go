// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/node/chainindex"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/node/chainwork"
	"gitlab.com/jaxnet/chainstate/node/tips"
)

const (
	LogUnitCHIX = "CHIX"
	LogUnitWORK = "WORK"
	LogUnitTIPS = "TIPS"
	LogUnitCHST = "CHST"
	LogUnitBCDB = "BCDB"
	LogUnitCHSD = "CHSD"
)

// unitLogs maps each unit to the function that installs its logger.  The
// daemon unit has no package logger, it is returned by SetupLogging.
var unitLogs = map[string]func(zerolog.Logger){
	LogUnitCHIX: chainindex.UseLogger,
	LogUnitWORK: chainwork.UseLogger,
	LogUnitTIPS: tips.UseLogger,
	LogUnitCHST: chainstate.UseLogger,
	LogUnitBCDB: database.UseLogger,
	LogUnitCHSD: func(zerolog.Logger) {},
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(unitLogs))
	for subsysID := range unitLogs {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseLogLevels parses either a single level applied to every unit or a
// list of <unit>=<level> pairs.  Units that are not listed keep the default
// level.
func parseLogLevels(debugLevel string) (map[string]zerolog.Level, error) {
	levels := make(map[string]zerolog.Level, len(unitLogs))

	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		level, err := corelog.ParseLevel(debugLevel)
		if err != nil {
			return nil, fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		for unit := range unitLogs {
			levels[unit] = level
		}
		return levels, nil
	}

	for unit := range unitLogs {
		levels[unit] = corelog.DefaultLevel
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return nil, fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.SplitN(logLevelPair, "=", 2)
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := unitLogs[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return nil, fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		level, err := corelog.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
		levels[subsysID] = level
	}
	return levels, nil
}

// SetupLogging creates a logger per unit, hands them to the packages and
// returns the daemon logger.
func SetupLogging(cfg *Config) (zerolog.Logger, error) {
	levels, err := parseLogLevels(cfg.LogLevel)
	if err != nil {
		return corelog.Disabled, err
	}

	logCfg := cfg.LogConfig()
	for unit, useLogger := range unitLogs {
		useLogger(corelog.New(unit, levels[unit], logCfg))
	}
	return corelog.New(LogUnitCHSD, levels[LogUnitCHSD], logCfg), nil
}
