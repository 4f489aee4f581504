package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `baseURL: https://biometric.example.org
apiToken: token-123
hmacSecretBase64: c2VjcmV0LWtleQ==
gatewayClientId: gw-id
gatewayClientSecret: gw-secret
siteId: SITE1
templateDir: /var/lib/biotime/templates
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biotime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://biometric.example.org", c.BaseURL)
	assert.Equal(t, []byte("secret-key"), c.HMACSecret())

	// Defaults filled in.
	assert.NotEmpty(t, c.DeviceID)
	assert.Equal(t, 100, c.MatchThreshold)
	assert.Equal(t, 60, c.RequestTimeoutSeconds)
	assert.Equal(t, 5000, c.CaptureWaitMillis)
}

func TestLoadExplicitValuesKept(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML+`deviceId: KIOSK-7
matchThreshold: 80
captureWaitMillis: 2500
`))
	require.NoError(t, err)

	assert.Equal(t, "KIOSK-7", c.DeviceID)
	assert.Equal(t, 80, c.MatchThreshold)
	assert.Equal(t, 2500, c.CaptureWaitMillis)
}

func TestLoadMissingFields(t *testing.T) {
	_, err := Load(writeConfig(t, "baseURL: https://x.example.org\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiToken")
}

func TestLoadBadSecret(t *testing.T) {
	bad := `baseURL: https://x.example.org
apiToken: t
hmacSecretBase64: "!!! not base64 !!!"
gatewayClientId: a
gatewayClientSecret: b
siteId: s
templateDir: /tmp/x
`
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
