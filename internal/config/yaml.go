// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "hearaid/internal/log"
)

// Load reads configuration from a YAML file at path. If path is empty
// it searches default locations; if no file is found the built-in
// defaults are used. Environment overrides are applied after loading,
// then the result is validated.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		candidates := []string{
			"hearaid.yaml",
			"hearaid.yml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file for the
// settings most useful to flip without editing YAML.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("HEARAID_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("config: overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("HEARAID_PRESET"); ok {
		c.Processing.Preset = val
		applog.Debugf("config: overriding processing.preset from env: %s", val)
	}
	if val, ok := os.LookupEnv("HEARAID_WS_ADDR"); ok {
		c.Monitor.WSAddr = val
		applog.Debugf("config: overriding monitor.ws_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("HEARAID_UDP_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Monitor.UDPInterval = dur
			applog.Debugf("config: overriding monitor.udp_interval from env: %s", dur)
		}
	}
}
