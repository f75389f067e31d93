package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ConnectRejectsBadParams(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.AdapterConfig{Params: map[string]any{"bogus": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
}

func TestAdapter_DescribeAndExecute(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Params: map[string]any{"settings": map[string]any{"threads": "1"}},
	}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, label VARCHAR)"))
	require.NoError(t, adp.Exec(ctx, "INSERT INTO items VALUES (1, 'a'), (2, NULL)"))

	cols, err := adp.Describe(ctx, "memory", "items")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.False(t, cols[1].PrimaryKey)

	res, err := adp.Execute(ctx, "SELECT * FROM items ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowCount)
	assert.Nil(t, res.Rows[1]["label"])

	names, err := adp.ListTables(ctx, "memory")
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, names)
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	ctx := context.Background()

	_, err := adp.Execute(ctx, "SELECT 1")
	assert.ErrorContains(t, err, "not established")
	_, err = adp.Describe(ctx, "", "t")
	assert.ErrorContains(t, err, "not established")
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"))
	factory, ok := adapter.Get("duckdb")
	require.True(t, ok)
	_, ok = factory(nil).(*Adapter)
	assert.True(t, ok)
}
