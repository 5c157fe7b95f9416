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

package config_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/config"
	"github.com/statechannels/nitro-protocol/store"
)

const (
	counting = "0x1111111111111111111111111111111111111111"
	trivial  = "0x2222222222222222222222222222222222222222"
	holder   = "0x3333333333333333333333333333333333333333"
)

const testConfig = `
chain_id: 4660
log:
  level: debug
  format: json
store:
  backend: memory
apps:
  "` + counting + `": counting
  "` + trivial + `": trivial
asset_holders:
  - "` + holder + `"
metrics:
  namespace: nitro
`

func TestRead(t *testing.T) {
	cfg, err := config.Read(strings.NewReader(testConfig))
	require.NoError(t, err)
	require.Equal(t, uint64(0x1234), cfg.ChainID)
	require.Equal(t, int64(0x1234), cfg.ChainIDBig().Int64())
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, config.StoreMemory, cfg.Store.Backend)
	require.Equal(t, "nitro", cfg.Metrics.Namespace)
	require.Len(t, cfg.Apps, 2)

	apps, err := cfg.AppRegistry()
	require.NoError(t, err)
	app, err := apps.App(common.HexToAddress(counting))
	require.NoError(t, err)
	require.IsType(t, channel.CountingApp{}, app)
	app, err = apps.App(common.HexToAddress(trivial))
	require.NoError(t, err)
	require.IsType(t, channel.TrivialApp{}, app)

	holders, err := cfg.AssetHolderAddresses()
	require.NoError(t, err)
	require.Equal(t, []common.Address{common.HexToAddress(holder)}, holders)

	l, err := cfg.Logger()
	require.NoError(t, err)
	require.NotNil(t, l)

	adj, ah, err := cfg.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, adj)
	require.NotNil(t, ah)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, config.StoreMemory, cfg.Store.Backend)

	kv, err := cfg.OpenStore(context.Background())
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, kv)

	adj, ah, err := cfg.NewMetrics(nil)
	require.NoError(t, err)
	require.Nil(t, adj)
	require.Nil(t, ah)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("NITRO_LOG_LEVEL", "warn")
	t.Setenv("NITRO_CHAIN_ID", "7")
	path := filepath.Join(t.TempDir(), "nitro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, uint64(7), cfg.ChainID)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestSQLiteStore(t *testing.T) {
	cfg, err := config.Read(strings.NewReader(`
store:
  backend: sqlite
  dsn: ` + filepath.Join(t.TempDir(), "nitro.db") + `
`))
	require.NoError(t, err)
	kv, err := cfg.OpenStore(context.Background())
	require.NoError(t, err)
	require.IsType(t, &store.SQLite{}, kv)
	require.NoError(t, kv.(io.Closer).Close())
}

func TestInvalid(t *testing.T) {
	read := func(t *testing.T, yaml string) *config.Config {
		t.Helper()
		cfg, err := config.Read(strings.NewReader(yaml))
		require.NoError(t, err)
		return cfg
	}

	t.Run("app kind", func(t *testing.T) {
		_, err := read(t, "apps:\n  \""+counting+"\": chess\n").AppRegistry()
		require.ErrorIs(t, err, config.ErrUnknownAppKind)
	})

	t.Run("app address", func(t *testing.T) {
		_, err := read(t, "apps:\n  nope: counting\n").AppRegistry()
		require.ErrorIs(t, err, config.ErrInvalidAddress)
	})

	t.Run("asset holder", func(t *testing.T) {
		_, err := read(t, "asset_holders: [\"0x12\"]\n").AssetHolderAddresses()
		require.ErrorIs(t, err, config.ErrInvalidAddress)
	})

	t.Run("store backend", func(t *testing.T) {
		_, err := read(t, "store:\n  backend: etcd\n").OpenStore(context.Background())
		require.ErrorIs(t, err, config.ErrUnknownStoreBackend)
	})

	t.Run("log level", func(t *testing.T) {
		_, err := read(t, "log:\n  level: loud\n").Logger()
		require.Error(t, err)
	})

	t.Run("log format", func(t *testing.T) {
		_, err := read(t, "log:\n  format: xml\n").Logger()
		require.ErrorIs(t, err, config.ErrUnknownLogFormat)
	})
}
