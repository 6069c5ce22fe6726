// Package fpsconfig loads and validates the server's YAML configuration.
//
// Structure and validation style are carried over from
// sdmconfig/internal/config/config.go: a decoder with KnownFields(true),
// path resolution relative to the config file, and small per-section
// validate functions that return wrapped errors rather than panicking.
package fpsconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full on-disk server configuration.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Policy      PolicyConfig      `yaml:"policy"`
	Runtime     RuntimeConfig     `yaml:"runtime"`
}

// CredentialsConfig locates the key material used to unwrap SPC payloads
// and encrypt CKC payloads. See internal/credentials for the loader.
type CredentialsConfig struct {
	PrivateKeyV1Path     string `yaml:"private_key_v1_path"`
	PrivateKeyV2Path     string `yaml:"private_key_v2_path"`
	ProvisioningDataPath string `yaml:"provisioning_data_path"`
}

// PolicyConfig carries the tunables the business-rule engine needs that
// the original SDK hardcodes as constants.
type PolicyConfig struct {
	// MinKDLVersion is the minimum acceptable kext deny-list version.
	// Defaults to 31, the original SDK's MIN_KDL_VERSION, when the field
	// is omitted from the config file.
	MinKDLVersion *int `yaml:"min_kdl_version"`
	// RejectVMPlayback, when true, denies content keys to clients
	// reporting a VM device class. The original SDK ships this check
	// commented out; here it is a live, configurable policy toggle.
	RejectVMPlayback *bool `yaml:"reject_vm_playback"`
}

// RuntimeConfig carries knobs for a host process embedding this library
// behind a transport. No transport is implemented here (out of scope).
type RuntimeConfig struct {
	MaxBatchSize  *int  `yaml:"max_batch_size"`
	SampleLogging *bool `yaml:"sample_logging"`
}

const defaultMinKDLVersion = 31

func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MinKDLVersion == nil {
		v := defaultMinKDLVersion
		c.Policy.MinKDLVersion = &v
	}
	if c.Policy.RejectVMPlayback == nil {
		v := false
		c.Policy.RejectVMPlayback = &v
	}
	if c.Runtime.MaxBatchSize == nil {
		v := 64
		c.Runtime.MaxBatchSize = &v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Credentials.PrivateKeyV1Path) == "" {
		return fmt.Errorf("config.credentials.private_key_v1_path is required")
	}
	if err := validateReadableFile(c.Credentials.PrivateKeyV1Path, "config.credentials.private_key_v1_path"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Credentials.PrivateKeyV2Path) == "" {
		return fmt.Errorf("config.credentials.private_key_v2_path is required")
	}
	if err := validateReadableFile(c.Credentials.PrivateKeyV2Path, "config.credentials.private_key_v2_path"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Credentials.ProvisioningDataPath) == "" {
		return fmt.Errorf("config.credentials.provisioning_data_path is required")
	}
	if err := validateReadableFile(c.Credentials.ProvisioningDataPath, "config.credentials.provisioning_data_path"); err != nil {
		return err
	}
	if c.Policy.MinKDLVersion != nil && *c.Policy.MinKDLVersion < 0 {
		return fmt.Errorf("config.policy.min_kdl_version must be >= 0")
	}
	if c.Runtime.MaxBatchSize != nil && *c.Runtime.MaxBatchSize <= 0 {
		return fmt.Errorf("config.runtime.max_batch_size must be > 0")
	}
	return nil
}

func (c *Config) resolvePaths(configPath string) {
	dir := filepath.Dir(configPath)
	c.Credentials.PrivateKeyV1Path = resolvePath(dir, c.Credentials.PrivateKeyV1Path)
	c.Credentials.PrivateKeyV2Path = resolvePath(dir, c.Credentials.PrivateKeyV2Path)
	c.Credentials.ProvisioningDataPath = resolvePath(dir, c.Credentials.ProvisioningDataPath)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
