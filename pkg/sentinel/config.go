package sentinel

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/fleet"
	"github.com/heartportal/fleet-sentinel/pkg/health"
)

// Scheduling and policy defaults
const (
	DefaultMonitoringInterval   = 30 * time.Second
	DefaultCertCheckEveryPasses = 10
	DefaultHTTPPort             = 9310
	DefaultAlertLogPath         = "fleet-sentinel-alerts.log"
)

// Config represents the top-level configuration file structure
type Config struct {
	Sentinel SentinelOptions `yaml:"sentinel"`
	Services []ServiceConfig `yaml:"services"`
}

// SentinelOptions represents monitor-level configuration
type SentinelOptions struct {
	LogLevel             string        `yaml:"log_level,omitempty"`
	LogEncoding          string        `yaml:"log_encoding,omitempty"`
	MonitoringInterval   time.Duration `yaml:"monitoring_interval,omitempty"`
	ProbeTimeout         time.Duration `yaml:"probe_timeout,omitempty"`
	Domain               string        `yaml:"domain,omitempty"`
	CertCheckEveryPasses int           `yaml:"cert_check_every_passes,omitempty"`
	AlertLogPath         string        `yaml:"alert_log_path,omitempty"`
	AlertCooldown        time.Duration `yaml:"alert_cooldown,omitempty"`
	RunFilePath          string        `yaml:"run_file_path,omitempty"`
	HTTPPort             int           `yaml:"http_port,omitempty"`
	Remote               RemoteOptions `yaml:"remote,omitempty"`
}

// RemoteOptions selects remote command execution over ssh; empty host means
// all probes run locally
type RemoteOptions struct {
	Host string `yaml:"host,omitempty"`
	User string `yaml:"user,omitempty"`
}

// ServiceConfig represents a single monitored service configuration
type ServiceConfig struct {
	Name  string `yaml:"name"`
	Ports []int  `yaml:"ports"`

	// Pointer to distinguish unset from false; defaults to true
	AutoRemediate *bool `yaml:"auto_remediate,omitempty"`

	Host string `yaml:"host,omitempty"`
}

// Descriptor converts the configuration entry into the immutable descriptor
// used by the monitoring core
func (c ServiceConfig) Descriptor() fleet.ServiceDescriptor {
	autoRemediate := true
	if c.AutoRemediate != nil {
		autoRemediate = *c.AutoRemediate
	}
	return fleet.ServiceDescriptor{
		Name:          c.Name,
		Ports:         c.Ports,
		AutoRemediate: autoRemediate,
		Host:          c.Host,
	}
}

// LoadConfigFromFile loads sentinel configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// setConfigDefaults applies default values to configuration
func setConfigDefaults(config *Config) {
	if config.Sentinel.LogLevel == "" {
		config.Sentinel.LogLevel = "info"
	}
	if config.Sentinel.LogEncoding == "" {
		config.Sentinel.LogEncoding = "console"
	}
	if config.Sentinel.MonitoringInterval == 0 {
		config.Sentinel.MonitoringInterval = DefaultMonitoringInterval
	}
	if config.Sentinel.ProbeTimeout == 0 {
		config.Sentinel.ProbeTimeout = health.HealthCheckTimeout
	}
	if config.Sentinel.CertCheckEveryPasses == 0 {
		config.Sentinel.CertCheckEveryPasses = DefaultCertCheckEveryPasses
	}
	if config.Sentinel.AlertLogPath == "" {
		config.Sentinel.AlertLogPath = DefaultAlertLogPath
	}
	if config.Sentinel.HTTPPort == 0 {
		config.Sentinel.HTTPPort = DefaultHTTPPort
	}

	for i := range config.Services {
		service := &config.Services[i]
		if service.AutoRemediate == nil {
			autoRemediate := true
			service.AutoRemediate = &autoRemediate
		}
	}
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateSentinelOptions(&config.Sentinel); err != nil {
		return errors.NewValidationError("invalid sentinel configuration", err)
	}

	if len(config.Services) == 0 {
		return errors.NewValidationError("at least one service must be configured", nil)
	}

	seenNames := make(map[string]int)
	for i, service := range config.Services {
		if err := fleet.ValidateDescriptor(service.Descriptor()); err != nil {
			return errors.NewValidationError(
				fmt.Sprintf("invalid service configuration at index %d", i),
				err,
			).WithContext("service", service.Name)
		}

		if prevIndex, exists := seenNames[service.Name]; exists {
			return errors.NewValidationError(
				fmt.Sprintf("duplicate service name '%s' found at indices %d and %d", service.Name, prevIndex, i),
				nil,
			)
		}
		seenNames[service.Name] = i
	}

	return nil
}

func validateSentinelOptions(options *SentinelOptions) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if options.LogLevel != "" && !validLogLevels[options.LogLevel] {
		return errors.NewValidationError(
			fmt.Sprintf("invalid log level: %s", options.LogLevel),
			nil,
		).WithContext("valid_levels", "debug, info, warn, error")
	}

	if options.LogEncoding != "" && options.LogEncoding != "console" && options.LogEncoding != "json" {
		return errors.NewValidationError(
			fmt.Sprintf("invalid log encoding: %s", options.LogEncoding),
			nil,
		).WithContext("valid_encodings", "console, json")
	}

	if options.MonitoringInterval < 0 {
		return errors.NewValidationError("monitoring interval cannot be negative", nil)
	}

	if options.ProbeTimeout < 0 {
		return errors.NewValidationError("probe timeout cannot be negative", nil)
	}

	if options.HTTPPort < 0 || options.HTTPPort > 65535 {
		return errors.NewValidationError(
			fmt.Sprintf("invalid HTTP port: %d", options.HTTPPort),
			nil,
		).WithContext("valid_range", "0-65535")
	}

	if options.Remote.User != "" && options.Remote.Host == "" {
		return errors.NewValidationError("remote user requires a remote host", nil)
	}

	return nil
}

// ValidateConfigFile validates a configuration file without running the monitor
func ValidateConfigFile(configFile string) error {
	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	return ValidateConfig(config)
}
