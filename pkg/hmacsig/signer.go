// Package hmacsig computes the per-request authentication envelope the
// directory service requires: a unix-second timestamp, a hex SHA-256 body
// hash, and a base64 HMAC-SHA256 signature over
//
//	timestamp "\n" METHOD "\n" path "\n" bodyHash
//
// The timestamp binds the signature to a server-enforced skew window; the
// method, path and body hash bind it to one specific request.
package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/grosvenor-hsc/biotime/pkg/options"
)

// Envelope carries the three signed-request header values for one call.
// Computed per request, never stored.
type Envelope struct {
	Timestamp string
	BodyHash  string
	Signature string
}

type Signer struct {
	secret []byte
	clock  func() time.Time
}

func New(secret []byte, opts ...options.Option) *Signer {
	oo := options.NewOptions(opts...)

	return &Signer{
		secret: secret,
		clock:  oo.Clock,
	}
}

// Sign builds the envelope for one outgoing request. The path must exclude
// the query string; body is empty for bodyless methods.
func (s *Signer) Sign(method, path string, body []byte) Envelope {
	timestamp := strconv.FormatInt(s.clock().UTC().Unix(), 10)

	sum := sha256.Sum256(body)
	bodyHash := hex.EncodeToString(sum[:])

	message := timestamp + "\n" + strings.ToUpper(method) + "\n" + path + "\n" + bodyHash

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))

	return Envelope{
		Timestamp: timestamp,
		BodyHash:  bodyHash,
		Signature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}
}
