// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings of a nitro node and builds its
// components from them.
package config

import (
	"context"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"perun.network/go-perun/log"
	plogrus "perun.network/go-perun/log/logrus"

	"github.com/statechannels/nitro-protocol/assetholder"
	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/store"
)

// EnvPrefix prefixes the environment variables overriding settings, e.g.
// NITRO_LOG_LEVEL for log.level.
const EnvPrefix = "NITRO"

// App kinds.
const (
	AppCounting = "counting"
	AppTrivial  = "trivial"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

var (
	ErrUnknownAppKind      = errors.New("unknown app kind")
	ErrUnknownStoreBackend = errors.New("unknown store backend")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrUnknownLogFormat    = errors.New("unknown log format")
)

type (
	// Config holds the settings of a node.
	Config struct {
		ChainID      uint64            `mapstructure:"chain_id"`
		Log          LogConfig         `mapstructure:"log"`
		Store        StoreConfig       `mapstructure:"store"`
		Apps         map[string]string `mapstructure:"apps"`
		AssetHolders []string          `mapstructure:"asset_holders"`
		Metrics      MetricsConfig     `mapstructure:"metrics"`
	}

	LogConfig struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	StoreConfig struct {
		Backend string `mapstructure:"backend"`
		DSN     string `mapstructure:"dsn"`
	}

	// MetricsConfig configures the operation counters. An empty namespace
	// disables them.
	MetricsConfig struct {
		Namespace string `mapstructure:"namespace"`
	}
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain_id", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("metrics.namespace", "")
	return v
}

// Load reads the YAML file at path. An empty path yields the defaults.
// Environment variables take precedence over both.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithMessagef(err, "reading config file %s", path)
		}
	}
	return unmarshal(v)
}

// Read reads a YAML config from r.
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.WithMessage(err, "reading config")
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WithMessage(err, "decoding config")
	}
	return &cfg, nil
}

// ChainIDBig returns the chain id for use in channel parameters.
func (c *Config) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(c.ChainID)
}

// AppRegistry registers the configured apps.
func (c *Config) AppRegistry() (*channel.AppRegistry, error) {
	reg := channel.NewAppRegistry()
	for addr, kind := range c.Apps {
		a, err := parseAddress(addr)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(kind) {
		case AppCounting:
			reg.Register(a, channel.CountingApp{})
		case AppTrivial:
			reg.Register(a, channel.TrivialApp{})
		default:
			return nil, errors.WithMessagef(ErrUnknownAppKind, "%q for %s", kind, addr)
		}
	}
	return reg, nil
}

// AssetHolderAddresses parses the configured asset holders.
func (c *Config) AssetHolderAddresses() ([]common.Address, error) {
	addrs := make([]common.Address, len(c.AssetHolders))
	for i, s := range c.AssetHolders {
		a, err := parseAddress(s)
		if err != nil {
			return nil, err
		}
		addrs[i] = a
	}
	return addrs, nil
}

// OpenStore opens the configured store. A SQLite store must be closed by
// the caller.
func (c *Config) OpenStore(ctx context.Context) (store.KV, error) {
	switch c.Store.Backend {
	case StoreMemory, "":
		return store.NewMemory(), nil
	case StoreSQLite:
		db, err := store.OpenSQLite(ctx, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, errors.WithMessagef(ErrUnknownStoreBackend, "%q", c.Store.Backend)
	}
}

// Logger builds a logrus backed logger.
func (c *Config) Logger() (log.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.WithMessage(err, "parsing log level")
	}
	l := logrus.New()
	l.SetLevel(level)
	switch c.Log.Format {
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.WithMessagef(ErrUnknownLogFormat, "%q", c.Log.Format)
	}
	return plogrus.FromLogrus(l), nil
}

// NewMetrics creates the operation counters of the adjudicator and the asset
// holders and registers them on reg. Both are nil if metrics are disabled.
func (c *Config) NewMetrics(reg prometheus.Registerer) (adjudicator, assetHolders *channel.Metrics, err error) {
	if c.Metrics.Namespace == "" {
		return nil, nil, nil
	}
	if adjudicator, err = channel.NewMetrics(c.Metrics.Namespace, "adjudicator", reg); err != nil {
		return nil, nil, err
	}
	if assetHolders, err = assetholder.NewMetrics(c.Metrics.Namespace, reg); err != nil {
		return nil, nil, err
	}
	return adjudicator, assetHolders, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.WithMessagef(ErrInvalidAddress, "%q", s)
	}
	return common.HexToAddress(s), nil
}
