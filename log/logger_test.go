/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogfAdapter_JSON(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = LevelInfo

	var buf bytes.Buffer
	logger := &LogfAdapter{Logger: newSyncLogfLogger(cfg, &buf)}
	logger.With(String("collection", "users")).Info("cache swept", Int("evicted", 3))
	logger.Debug("invisible")
	logger.Warnf("timeout is %s", "1m0s")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "cache swept", entry["msg"])
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "users", entry["collection"])
	require.EqualValues(t, 3, entry["evicted"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	require.Equal(t, "timeout is 1m0s", entry["msg"])
}

func TestResolvePlaceholders(t *testing.T) {
	got := resolvePlaceholders("/var/log/jasondb-{{pid}}.log")
	require.NotContains(t, got, "{{pid}}")
	require.True(t, strings.HasPrefix(got, "/var/log/jasondb-"))
}

func TestNewDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	require.NotPanics(t, func() {
		logger.With(String("k", "v")).Error("nothing happens")
		logger.Infof("nothing happens %d", 1)
	})
}
