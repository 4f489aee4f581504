// Package config loads deployment configuration. Credentials and endpoints
// are always supplied externally; nothing in this module compiles them in.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/grosvenor-hsc/biotime/pkg/options"
)

type Config struct {
	// BaseURL of the directory/event service, including scheme.
	BaseURL string `yaml:"baseURL"`
	// APIToken is the static bearer sent as X-Api-Token.
	APIToken string `yaml:"apiToken"`
	// HMACSecretBase64 is the pre-shared request-signing secret.
	HMACSecretBase64 string `yaml:"hmacSecretBase64"`
	// Gateway credentials for the access-control layer in front of the
	// service.
	GatewayClientID     string `yaml:"gatewayClientId"`
	GatewayClientSecret string `yaml:"gatewayClientSecret"`

	SiteID   string `yaml:"siteId"`
	DeviceID string `yaml:"deviceId"`

	// TemplateDir holds the durable template artifacts.
	TemplateDir string `yaml:"templateDir"`

	MatchThreshold        int `yaml:"matchThreshold"`
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`
	CaptureWaitMillis     int `yaml:"captureWaitMillis"`
}

// Load reads and validates a YAML config file, filling defaults. A missing
// device id is generated and is stable only for the process lifetime; pin it
// in the file for a fixed kiosk identity.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	return &c, nil
}

func (c *Config) validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"baseURL", c.BaseURL},
		{"apiToken", c.APIToken},
		{"hmacSecretBase64", c.HMACSecretBase64},
		{"gatewayClientId", c.GatewayClientID},
		{"gatewayClientSecret", c.GatewayClientSecret},
		{"siteId", c.SiteID},
		{"templateDir", c.TemplateDir},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %v", missing)
	}

	if _, err := base64.StdEncoding.DecodeString(c.HMACSecretBase64); err != nil {
		return errors.New("config: hmacSecretBase64 is not valid base64")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DeviceID == "" {
		c.DeviceID = uuid.NewString()
	}
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = options.DefaultThreshold
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = int(options.DefaultRequestTimeout.Seconds())
	}
	if c.CaptureWaitMillis <= 0 {
		c.CaptureWaitMillis = int(options.DefaultCaptureWait.Milliseconds())
	}
}

// HMACSecret decodes the pre-shared signing secret.
func (c *Config) HMACSecret() []byte {
	secret, err := base64.StdEncoding.DecodeString(c.HMACSecretBase64)
	if err != nil {
		// validate() already refused undecodable secrets.
		panic(err)
	}
	return secret
}
