package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerAddress, cfg.Address)
	assert.Equal(t, constants.DefaultMaxUploadSizeBytes, cfg.UploadSizeBytes())
	assert.Empty(t, cfg.Logging.Level)
	assert.Empty(t, cfg.PricesDB)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultServerAddress, cfg.Address)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server-config.yaml")
	contents := []byte(`address: 127.0.0.1:9000
maxUploadSize: 2M
pricesDB: /var/lib/mac-forecast/prices.db
logging:
  level: debug
  format: console
`)
	require.NoError(t, os.WriteFile(path, contents, 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Address)
	assert.Equal(t, int64(2*1024*1024), cfg.UploadSizeBytes())
	assert.Equal(t, "/var/lib/mac-forecast/prices.db", cfg.PricesDB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxUploadSize: 12Q\n"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", constants.DefaultMaxUploadSizeBytes, false},
		{"0", constants.DefaultMaxUploadSizeBytes, false},
		{"512", 512, false},
		{"512B", 512, false},
		{"256K", 256 * 1024, false},
		{"256kb", 256 * 1024, false},
		{" 10 MB ", 10 * 1024 * 1024, false},
		{"1G", 1024 * 1024 * 1024, false},
		{"MB", 0, true},
		{"5T", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
