package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Applies defaults to a minimal file", func(t *testing.T) {
		// Given: a config file that only sets the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: loading it
		conf, err := Load(path)

		// Then: every section falls back to its default
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "7777", conf.SocketPort)
		assert.Equal(t, StoreMemory, conf.Store.Driver)
		assert.Equal(t, 3*time.Second, conf.Store.SettlementTimeout)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, int32(10), conf.Postgres.MaxConns)
		assert.Equal(t, 2*time.Minute, conf.Matchmaking.PendingRoomTTL)
		assert.Equal(t, 10*time.Second, conf.Matchmaking.SweepInterval)
		assert.False(t, conf.Matchmaking.KnownIdentitiesOnly)
		assert.Equal(t, 256, conf.WebSocket.SendBuffer)
		assert.Equal(t, 54*time.Second, conf.WebSocket.PingInterval)
		assert.Equal(t, 60*time.Second, conf.WebSocket.PongWait)
	})

	t.Run("Reads nested sections", func(t *testing.T) {
		path := writeConfig(t, `
store:
  driver: redis
  settlement-timeout: 500ms
redis:
  host: cache
  port: "6380"
  db: 2
matchmaking:
  pending-room-ttl: 30s
  sweep-interval: 1s
  known-identities-only: true
`)

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, StoreRedis, conf.Store.Driver)
		assert.Equal(t, 500*time.Millisecond, conf.Store.SettlementTimeout)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, 2, conf.Redis.DB)
		assert.Equal(t, 30*time.Second, conf.Matchmaking.PendingRoomTTL)
		assert.True(t, conf.Matchmaking.KnownIdentitiesOnly)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "store:\n  driver: redis\n")
		t.Setenv("STORE_DRIVER", "postgres")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, StorePostgres, conf.Store.Driver)
	})

	t.Run("Rejects an unknown store driver", func(t *testing.T) {
		path := writeConfig(t, "store:\n  driver: mongo\n")

		_, err := Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown store driver")
	})

	t.Run("Rejects a ping interval that outlives the pong wait", func(t *testing.T) {
		path := writeConfig(t, "websocket:\n  ping-interval: 90s\n  pong-wait: 60s\n")

		_, err := Load(path)

		require.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		require.Error(t, err)
	})

	t.Run("Rejects negative timings and buffers", func(t *testing.T) {
		cases := map[string]string{
			"settlement-timeout": "store:\n  settlement-timeout: -1s\n",
			"pending-room-ttl":   "matchmaking:\n  pending-room-ttl: -1m\n",
			"sweep-interval":     "matchmaking:\n  sweep-interval: -1s\n",
			"write-wait":         "websocket:\n  write-wait: -1s\n",
			"send-buffer":        "websocket:\n  send-buffer: -1\n",
		}

		for field, body := range cases {
			t.Run(field, func(t *testing.T) {
				_, err := Load(writeConfig(t, body))

				require.Error(t, err)
				assert.Contains(t, err.Error(), field)
			})
		}
	})
}
