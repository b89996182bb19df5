package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditlog.yml")
	require.NoError(t, os.WriteFile(path, []byte("store: redis\ndsn: redis://localhost:6379/0\nprefix: ops\nlocale: de\n"), 0o600))
	t.Setenv("AUDITLOG_PREFIX", "audit")
	t.Setenv("AUDITLOG_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Store:    "redis",
		DSN:      "redis://localhost:6379/0",
		Prefix:   "audit",
		Locale:   "de",
		LogLevel: "debug",
	}, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditlog.yml")
	require.NoError(t, os.WriteFile(path, []byte("store: [sqlite"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite", cfg: Config{Store: "sqlite", DSN: "a.db"}},
		{name: "memory without dsn", cfg: Config{Store: "memory"}},
		{name: "unknown store", cfg: Config{Store: "mongo", DSN: "x"}, wantErr: true},
		{name: "postgres without dsn", cfg: Config{Store: "postgres"}, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
