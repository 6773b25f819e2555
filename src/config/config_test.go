package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: weather-observer
log_level: INFO
host: 127.0.0.1
port: 8070
storage:
  weather_dir: /var/lib/weather
  mode: auto
network:
  timeout: 20
  retries: 2
timeline:
  endpoint: https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline
  api_key: secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "weather-observer", cfg.Name)
	assert.Equal(t, "/var/lib/weather", cfg.Storage.WeatherDir)
	assert.Equal(t, "auto", cfg.Storage.Mode)
	assert.Equal(t, 20, cfg.Network.RequestTimeout)
	assert.Equal(t, "secret", cfg.Timeline.APIKey)

	// defaults fill in what the file omits
	assert.Equal(t, 250, cfg.Timeline.PollIntervalMS)
	assert.Equal(t, 30, cfg.Timeline.PollTimeoutSec)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestNewConfigValidation(t *testing.T) {
	cases := []string{
		"log_level: INFO\nstorage:\n  weather_dir: /tmp/w\n",                 // no name
		"name: x\nstorage:\n  weather_dir: ''\n",                             // no weather dir
		"name: x\nstorage:\n  weather_dir: /tmp/w\n  mode: postgres\n",       // bad mode
		"name: x\nhost: 0.0.0.0\nport: 80\nstorage:\n  weather_dir: /tmp/w\n", // privileged port
		"name: x\nstorage:\n  weather_dir: /tmp/w\nnetwork:\n  retries: -1\n", // negative retries
	}
	for _, content := range cases {
		_, err := NewConfig(writeConfig(t, content))
		assert.Error(t, err, "config: %s", content)
	}
}

// -----------------------------------------------------------------------------

func TestConfigSave(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.MConfig, reloaded.MConfig)
}
