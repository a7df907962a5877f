package config

import (
	"fmt"
	"os"
	"time"

	"mqtt-relay-controller/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config represents the complete controller configuration
type Config struct {
	MQTT    MQTTConfig           `yaml:"mqtt"`
	WiFi    WiFiConfig           `yaml:"wifi"`
	Relay   RelayConfig          `yaml:"relay"`
	Control ControlConfig        `yaml:"control"`
	HTTP    HTTPConfig           `yaml:"http"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains broker connection and topic settings
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	RetryDelay int    `yaml:"retry_delay"` // Delay between connection retries in milliseconds
	KeepAlive  int    `yaml:"keep_alive"`  // Keep-alive interval in seconds

	DataTopic         string `yaml:"data_topic"`         // Telemetry publish topic
	SettingsTopic     string `yaml:"settings_topic"`     // Inbound settings subscribe topic
	AvailabilityTopic string `yaml:"availability_topic"` // online/offline status topic (LWT)
	DiagnosticTopic   string `yaml:"diagnostic_topic"`   // Boot/session diagnostics topic
}

// WiFiConfig contains network link credentials and provisioning settings
type WiFiConfig struct {
	SSID   string `yaml:"ssid"`
	Secret string `yaml:"secret"`

	// Provisioning portal settings. When the link cannot be established with
	// the configured credentials and provisioning is enabled, a one-time
	// captive-portal style HTTP flow collects new credentials.
	ProvisioningEnabled bool `yaml:"provisioning_enabled"`
	ProvisioningPort    int  `yaml:"provisioning_port"`
	ProvisioningTimeout int  `yaml:"provisioning_timeout"` // Seconds; expiry is fatal
	SwapTimeout         int  `yaml:"swap_timeout"`         // Credential hot-swap wait in seconds
}

// RelayConfig contains the relay defaults applied at startup
type RelayConfig struct {
	Threshold  float64 `yaml:"threshold"`  // Temperature threshold in °C
	Reverse    bool    `yaml:"reverse"`    // Invert the relay-on condition
	Hysteresis float64 `yaml:"hysteresis"` // Optional margin below threshold before switching back (0 = disabled)
}

// ControlConfig contains control loop timing
type ControlConfig struct {
	CycleInterval int `yaml:"cycle_interval"` // Control cycle period in milliseconds
}

// HTTPConfig contains the optional HTTP telemetry variant settings
type HTTPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`      // Telemetry POSTed to {base_url}/{device_id}
	ThresholdURL string `yaml:"threshold_url"` // GET returns a bare numeric threshold
	Timeout      int    `yaml:"timeout"`       // Request timeout in seconds
}

// MetricsConfig contains metrics exposition settings
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Try to find configuration file in different locations
	paths := []string{
		configPath,
		"/etc/mqtt-relay-controller/config.yaml",
		"/etc/mqtt-relay-controller.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - Paths are from a hardcoded list of safe configuration file locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	config, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s", usedPath)
	return config, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills in defaults for optional settings
func (c *Config) applyDefaults() {
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.RetryDelay == 0 {
		c.MQTT.RetryDelay = 5000
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 60
	}
	if c.MQTT.DataTopic == "" {
		c.MQTT.DataTopic = "device/data"
	}
	if c.MQTT.SettingsTopic == "" {
		c.MQTT.SettingsTopic = "device/settings"
	}
	if c.Control.CycleInterval == 0 {
		c.Control.CycleInterval = 5000
	}
	if c.WiFi.SwapTimeout == 0 {
		c.WiFi.SwapTimeout = 10
	}
	if c.WiFi.ProvisioningTimeout == 0 {
		c.WiFi.ProvisioningTimeout = 180
	}
	if c.WiFi.ProvisioningPort == 0 {
		c.WiFi.ProvisioningPort = 8080
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 10
	}
	if c.Relay.Threshold == 0 {
		c.Relay.Threshold = 25.0
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is not specified")
	}
	if c.MQTT.Port <= 0 {
		return fmt.Errorf("mqtt.port must be positive")
	}
	if c.MQTT.DataTopic == "" {
		return fmt.Errorf("mqtt.data_topic is not specified")
	}
	if c.MQTT.SettingsTopic == "" {
		return fmt.Errorf("mqtt.settings_topic is not specified")
	}
	if c.Control.CycleInterval <= 0 {
		return fmt.Errorf("control.cycle_interval must be positive")
	}
	if c.Relay.Threshold <= 0 {
		return fmt.Errorf("relay.threshold must be positive")
	}
	if c.Relay.Hysteresis < 0 {
		return fmt.Errorf("relay.hysteresis must be non-negative")
	}
	if c.WiFi.SwapTimeout <= 0 {
		return fmt.Errorf("wifi.swap_timeout must be positive")
	}
	if c.HTTP.Enabled {
		if c.HTTP.BaseURL == "" {
			return fmt.Errorf("http.base_url is required when http variant is enabled")
		}
	}
	return nil
}

// Interval returns the control cycle period as a duration
func (c *ControlConfig) Interval() time.Duration {
	return time.Duration(c.CycleInterval) * time.Millisecond
}
