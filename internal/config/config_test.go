package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapview/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/sqlite"
)

func TestConnectionConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name       string
		in         ConnectionConfig
		wantSchema string
		wantPort   int
	}{
		{"postgres", ConnectionConfig{Type: "Postgres"}, "public", 5432},
		{"postgres keeps port", ConnectionConfig{Type: "postgres", Port: 6543}, "public", 6543},
		{"mysql", ConnectionConfig{Type: "mysql"}, "", 3306},
		{"sqlite", ConnectionConfig{Type: "sqlite"}, "main", 0},
		{"explicit schema", ConnectionConfig{Type: "duckdb", Schema: "raw"}, "raw", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			c.ApplyDefaults()
			assert.Equal(t, tt.wantSchema, c.Schema)
			assert.Equal(t, tt.wantPort, c.Port)
		})
	}
}

func TestConnectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		in        ConnectionConfig
		errSubstr string
	}{
		{"empty type", ConnectionConfig{}, "connection type is required"},
		{"unknown type", ConnectionConfig{Type: "oracle"}, "unknown adapter type"},
		{"postgres without host", ConnectionConfig{Type: "postgres"}, "requires host"},
		{"postgres", ConnectionConfig{Type: "postgres", Host: "localhost"}, ""},
		{"mysql without host", ConnectionConfig{Type: "mysql"}, "requires host"},
		{"sqlite", ConnectionConfig{Type: "sqlite", Path: "x.db"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	var unknown *adapter.UnknownAdapterError
	assert.ErrorAs(t, (&ConnectionConfig{Type: "oracle"}).Validate(), &unknown)
}

func TestConnectionConfig_ExpandEnv(t *testing.T) {
	t.Setenv("LV_TEST_PASSWORD", "s3cret")
	c := ConnectionConfig{Password: "${LV_TEST_PASSWORD}", User: "${LV_TEST_UNSET}", Host: "db-${LV_TEST_PASSWORD}"}
	c.ExpandEnv()
	assert.Equal(t, "s3cret", c.Password)
	assert.Equal(t, "${LV_TEST_UNSET}", c.User)
	assert.Equal(t, "db-s3cret", c.Host)
}

func TestLoadConnections(t *testing.T) {
	t.Setenv("LV_TEST_PASSWORD", "pw")
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
page_size: 50
connections:
  local:
    type: sqlite
    path: demo.db
  warehouse:
    type: postgres
    host: db.internal
    database: analytics
    user: reader
    password: ${LV_TEST_PASSWORD}
    options:
      sslmode: disable
`), 0o600))

	assert.Equal(t, path, FindConfigFile(dir))
	assert.Empty(t, FindConfigFile(t.TempDir()))

	conns, err := LoadConnections(path)
	require.NoError(t, err)
	require.Len(t, conns, 2)

	assert.Equal(t, adapter.Config{Type: "sqlite", Path: "demo.db", Schema: "main"}, conns["local"])
	wh := conns["warehouse"]
	assert.Equal(t, "postgres", wh.Type)
	assert.Equal(t, 5432, wh.Port)
	assert.Equal(t, "reader", wh.Username)
	assert.Equal(t, "pw", wh.Password)
	assert.Equal(t, "public", wh.Schema)
	assert.Equal(t, map[string]string{"sslmode": "disable"}, wh.Options)
}

func TestLoadConnections_Errors(t *testing.T) {
	_, err := LoadConnections(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  bad:\n    type: oracle\n"), 0o600))
	_, err = LoadConnections(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid connection "bad"`)
}
