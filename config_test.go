package qatzstd

import (
	"testing"

	"github.com/arloliu/qatzstd/compress"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, compress.DefaultLevel, cfg.Level)
	require.Equal(t, DefaultPoolSize, cfg.PoolSize)
	require.False(t, cfg.AccelEnabled)
	require.Zero(t, cfg.MaxOutputSize)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default level zero", func(c *Config) { c.Level = 0 }, false},
		{"max level", func(c *Config) { c.Level = compress.MaxLevel }, false},
		{"level too high", func(c *Config) { c.Level = compress.MaxLevel + 1 }, true},
		{"negative level", func(c *Config) { c.Level = -1 }, true},
		{"zero pool", func(c *Config) { c.PoolSize = 0 }, false},
		{"negative pool", func(c *Config) { c.PoolSize = -1 }, true},
		{"negative output limit", func(c *Config) { c.MaxOutputSize = -5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "7")
	t.Setenv(EnvPoolSize, "12")
	t.Setenv(EnvAccelEnabled, "true")
	t.Setenv(EnvMaxOutputSize, "1048576")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	require.Equal(t, Config{Level: 7, PoolSize: 12, AccelEnabled: true, MaxOutputSize: 1 << 20}, cfg)
}

func TestConfig_LoadFromEnvUnsetKeepsValues(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvPoolSize, "")
	t.Setenv(EnvAccelEnabled, "")
	t.Setenv(EnvMaxOutputSize, "")

	cfg := Config{Level: 5, PoolSize: 3, AccelEnabled: true}
	require.NoError(t, cfg.LoadFromEnv())
	require.Equal(t, Config{Level: 5, PoolSize: 3, AccelEnabled: true}, cfg)
}

func TestConfig_LoadFromEnvInvalid(t *testing.T) {
	for _, env := range []string{EnvLevel, EnvPoolSize, EnvAccelEnabled, EnvMaxOutputSize} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, "not-a-value")

			cfg := DefaultConfig()
			err := cfg.LoadFromEnv()
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.ErrorContains(t, err, env)
		})
	}
}

func TestSettings(t *testing.T) {
	s := newSettings(Config{Level: 0, PoolSize: 4, AccelEnabled: true, MaxOutputSize: 100})

	require.Equal(t, compress.DefaultLevel, s.Level())
	require.Equal(t, 4, s.PoolSize())
	require.True(t, s.AccelEnabled())
	require.Equal(t, 100, s.MaxOutputSize())

	require.NoError(t, s.SetLevel(9))
	require.ErrorIs(t, s.SetLevel(99), compress.ErrInvalidLevel)
	require.Equal(t, 9, s.Level())

	require.NoError(t, s.SetPoolSize(0))
	require.ErrorIs(t, s.SetPoolSize(-1), ErrInvalidConfig)

	s.SetAccelEnabled(false)
	require.Equal(t, Config{Level: 9, PoolSize: 0, AccelEnabled: false, MaxOutputSize: 100}, s.Snapshot())
}
