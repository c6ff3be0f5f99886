// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/database"
	_ "gitlab.com/jaxnet/chainstate/database/bdb"
	_ "gitlab.com/jaxnet/chainstate/database/ldb"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
)

const (
	defaultConfigFilename = "chainstated.yaml"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogLevel       = "info"
	defaultDBType         = "leveldb"
	defaultNet            = chaincfg.NetMainnet
)

var defaultHomeDir = appDataDir("chainstated")

// Config defines the configuration options for chainstated.
//
// See Load for details on the configuration load process.
type Config struct {
	ConfigFile    string   `short:"C" long:"configfile" description:"Path to configuration file (.yaml or .toml)" yaml:"-" toml:"-"`
	ShowVersion   bool     `short:"V" long:"version" description:"Display version information and exit" yaml:"-" toml:"-"`
	DataDir       string   `short:"b" long:"datadir" description:"Directory to store data" yaml:"data_dir" toml:"data_dir"`
	DBType        string   `long:"dbtype" description:"Database backend to use for the header store {leveldb, badger}" yaml:"db_type" toml:"db_type"`
	Net           string   `long:"net" description:"Network to use {mainnet, testnet, regtest}" yaml:"net" toml:"net"`
	LogLevel      string   `short:"d" long:"loglevel" description:"Logging level for all units {trace, debug, info, warn, error, critical} -- You may also specify <unit>=<level>,<unit>=<level>,... to set the log level for individual units" yaml:"log_level" toml:"log_level"`
	LogDir        string   `long:"logdir" description:"Directory to log output" yaml:"log_dir" toml:"log_dir"`
	LogJSON       bool     `long:"logjson" description:"Write logs to stdout as JSON" yaml:"log_json" toml:"log_json"`
	NoFileLogging bool     `long:"nofilelogging" description:"Disable file logging" yaml:"no_file_logging" toml:"no_file_logging"`
	Providers     []string `long:"provider" description:"Register a tip provider with the given id, may be repeated" yaml:"providers" toml:"providers"`
	ImportHeaders string   `long:"importheaders" description:"File with serialized block headers to import on start" yaml:"import_headers" toml:"import_headers"`
	MetricsAddr   string   `long:"metricsaddr" description:"Address to serve prometheus metrics on, disabled when empty" yaml:"metrics_addr" toml:"metrics_addr"`
}

// Default returns a config with every option at its default value.
func Default() Config {
	return Config{
		ConfigFile: filepath.Join(defaultHomeDir, defaultConfigFilename),
		DataDir:    filepath.Join(defaultHomeDir, defaultDataDirname),
		DBType:     defaultDBType,
		Net:        string(defaultNet),
		LogLevel:   defaultLogLevel,
		LogDir:     filepath.Join(defaultHomeDir, defaultLogDirname),
	}
}

// appDataDir returns the per user directory of the application.
func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDBType returns whether or not dbType is a supported database type.
func validDBType(dbType string) bool {
	for _, knownType := range database.SupportedDrivers() {
		if dbType == knownType {
			return true
		}
	}
	return false
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// Load initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in chainstated functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.  A missing config file is not an error.
func Load(args []string) (*Config, []string, error) {
	cfg := Default()

	// Pre-parse the command line options to see if an alternative config
	// file was specified.  Errors are caught by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	if fileExists(configFile) {
		if err := decodeFile(configFile, &cfg); err != nil {
			return nil, nil, err
		}
	}
	cfg.ConfigFile = configFile

	// Parse command line options again to ensure they take precedence.
	parser := flags.NewParser(&cfg, flags.HelpFlag)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, nil, err
	}
	return &cfg, remainingArgs, nil
}

// decodeFile reads a YAML or TOML config file into cfg, chosen by the file
// extension.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(cfg)
		if err == io.EOF {
			err = nil
		}
	case ".toml":
		err = toml.NewDecoder(file).Decode(cfg)
	default:
		return fmt.Errorf("config file %s: invalid file extension, must be .yaml or .toml", path)
	}
	if err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// normalize expands paths and validates every option.
func (cfg *Config) normalize() error {
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.ImportHeaders = cleanAndExpandPath(cfg.ImportHeaders)

	if _, err := chaincfg.ParamsByName(cfg.Net); err != nil {
		return err
	}

	if !validDBType(cfg.DBType) {
		return fmt.Errorf("the specified database type [%v] is invalid -- "+
			"supported types %v", cfg.DBType, database.SupportedDrivers())
	}

	if _, err := parseLogLevels(cfg.LogLevel); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Providers))
	for _, id := range cfg.Providers {
		if id == "" {
			return errors.New("provider id must not be empty")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("provider %q is listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Params returns the parameters of the configured network.
func (cfg *Config) Params() *chaincfg.Params {
	return chaincfg.NetName(cfg.Net).Params()
}

// DBPath returns the directory of the header store of the configured network
// and database type.
func (cfg *Config) DBPath() string {
	return filepath.Join(cfg.DataDir, cfg.Net, "headers_"+cfg.DBType)
}

// LogConfig returns the corelog settings derived from the config.
func (cfg *Config) LogConfig() corelog.Config {
	logCfg := corelog.DefaultConfig()
	logCfg.LogsAsJson = cfg.LogJSON
	logCfg.FileLoggingEnabled = !cfg.NoFileLogging
	logCfg.Directory = filepath.Join(cfg.LogDir, cfg.Net)
	return logCfg
}
