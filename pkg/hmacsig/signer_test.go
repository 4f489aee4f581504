package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grosvenor-hsc/biotime/pkg/options"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(unix int64) func() time.Time {
	return func() time.Time {
		return time.Unix(unix, 0)
	}
}

func TestSignDeterministic(t *testing.T) {
	s1 := New(testSecret, options.WithClock(fixedClock(1700000000)))
	s2 := New(testSecret, options.WithClock(fixedClock(1700000000)))

	body := []byte(`{"enrollmentId":7}`)
	e1 := s1.Sign("POST", "/api/scan", body)
	e2 := s2.Sign("POST", "/api/scan", body)

	assert.Equal(t, e1, e2)
	assert.Equal(t, "1700000000", e1.Timestamp)
}

func TestSignEnvelopeContents(t *testing.T) {
	s := New(testSecret, options.WithClock(fixedClock(1700000000)))
	body := []byte(`{"q":"x"}`)

	env := s.Sign("post", "/api/enrol", body)

	// Method is upper-cased before entering the signed message.
	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), env.BodyHash)

	mac := hmac.New(sha256.New, testSecret)
	mac.Write([]byte("1700000000\nPOST\n/api/enrol\n" + env.BodyHash))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), env.Signature)
}

func TestSignEmptyBody(t *testing.T) {
	s := New(testSecret, options.WithClock(fixedClock(1700000000)))

	env := s.Sign("GET", "/api/employees/search", nil)

	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), env.BodyHash)
	require.NotEmpty(t, env.Signature)
}

func TestSignInputSensitivity(t *testing.T) {
	s := New(testSecret, options.WithClock(fixedClock(1700000000)))
	base := s.Sign("GET", "/api/template/1", nil)

	assert.NotEqual(t, base.Signature, s.Sign("DELETE", "/api/template/1", nil).Signature)
	assert.NotEqual(t, base.Signature, s.Sign("GET", "/api/template/2", nil).Signature)
	assert.NotEqual(t, base.Signature, s.Sign("GET", "/api/template/1", []byte("x")).Signature)

	later := New(testSecret, options.WithClock(fixedClock(1700000001)))
	assert.NotEqual(t, base.Signature, later.Sign("GET", "/api/template/1", nil).Signature)

	otherKey := New([]byte("another secret"), options.WithClock(fixedClock(1700000000)))
	assert.NotEqual(t, base.Signature, otherKey.Sign("GET", "/api/template/1", nil).Signature)
}
