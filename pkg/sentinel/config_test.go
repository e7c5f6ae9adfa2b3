package sentinel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func minimalConfig() *Config {
	config := &Config{
		Services: []ServiceConfig{
			{Name: "main-app", Ports: []int{3000}},
		},
	}
	setConfigDefaults(config)
	return config
}

func TestLoadConfigFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
services:
  - name: main-app
    ports: [3000]
`)

	config, err := LoadConfigFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "info", config.Sentinel.LogLevel)
	assert.Equal(t, "console", config.Sentinel.LogEncoding)
	assert.Equal(t, DefaultMonitoringInterval, config.Sentinel.MonitoringInterval)
	assert.Equal(t, 10*time.Second, config.Sentinel.ProbeTimeout)
	assert.Equal(t, DefaultCertCheckEveryPasses, config.Sentinel.CertCheckEveryPasses)
	assert.Equal(t, DefaultAlertLogPath, config.Sentinel.AlertLogPath)
	assert.Equal(t, DefaultHTTPPort, config.Sentinel.HTTPPort)
}

func TestLoadConfigFromFile_FullFleet(t *testing.T) {
	path := writeConfigFile(t, `
sentinel:
  log_level: debug
  log_encoding: json
  domain: heartportal.example.org
  http_port: 9310
services:
  - name: main-app
    ports: [3000]
  - name: api-manager
    ports: [5000]
  - name: nginx
    ports: [80, 443]
    auto_remediate: false
`)

	config, err := LoadConfigFromFile(path)

	require.NoError(t, err)
	require.NoError(t, ValidateConfig(config))
	require.Len(t, config.Services, 3)
	assert.Equal(t, "heartportal.example.org", config.Sentinel.Domain)

	nginx := config.Services[2].Descriptor()
	assert.False(t, nginx.AutoRemediate)
	assert.Equal(t, []int{80, 443}, nginx.Ports)
	assert.Equal(t, 80, nginx.PrimaryPort())
}

func TestServiceConfig_AutoRemediateDefaultsTrue(t *testing.T) {
	path := writeConfigFile(t, `
services:
  - name: main-app
    ports: [3000]
`)

	config, err := LoadConfigFromFile(path)

	require.NoError(t, err)
	require.NotNil(t, config.Services[0].AutoRemediate)
	assert.True(t, config.Services[0].Descriptor().AutoRemediate)
}

func TestLoadConfigFromFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestLoadConfigFromFile_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "services: [unclosed")

	_, err := LoadConfigFromFile(path)

	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateConfig_NoServices(t *testing.T) {
	config := &Config{}
	setConfigDefaults(config)

	err := ValidateConfig(config)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one service")
}

func TestValidateConfig_DuplicateServiceNames(t *testing.T) {
	config := minimalConfig()
	config.Services = append(config.Services, ServiceConfig{Name: "main-app", Ports: []int{3001}})
	setConfigDefaults(config)

	err := ValidateConfig(config)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate service name")
}

func TestValidateConfig_InvalidServiceEntries(t *testing.T) {
	tests := []struct {
		name    string
		service ServiceConfig
	}{
		{"empty name", ServiceConfig{Name: "", Ports: []int{3000}}},
		{"bad characters", ServiceConfig{Name: "main app!", Ports: []int{3000}}},
		{"no ports", ServiceConfig{Name: "main-app"}},
		{"port out of range", ServiceConfig{Name: "main-app", Ports: []int{70000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{Services: []ServiceConfig{tt.service}}
			setConfigDefaults(config)

			assert.Error(t, ValidateConfig(config))
		})
	}
}

func TestValidateConfig_SentinelOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"bad log level", func(c *Config) { c.Sentinel.LogLevel = "verbose" }, false},
		{"bad encoding", func(c *Config) { c.Sentinel.LogEncoding = "xml" }, false},
		{"negative interval", func(c *Config) { c.Sentinel.MonitoringInterval = -time.Second }, false},
		{"http port too large", func(c *Config) { c.Sentinel.HTTPPort = 70000 }, false},
		{"remote user without host", func(c *Config) { c.Sentinel.Remote.User = "deploy" }, false},
		{"remote host and user", func(c *Config) {
			c.Sentinel.Remote.Host = "portal-host.internal"
			c.Sentinel.Remote.User = "deploy"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := minimalConfig()
			tt.mutate(config)

			err := ValidateConfig(config)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateConfigFile(t *testing.T) {
	valid := writeConfigFile(t, `
services:
  - name: main-app
    ports: [3000]
`)
	assert.NoError(t, ValidateConfigFile(valid))

	invalid := writeConfigFile(t, `
sentinel:
  log_level: loud
services:
  - name: main-app
    ports: [3000]
`)
	assert.Error(t, ValidateConfigFile(invalid))
}
