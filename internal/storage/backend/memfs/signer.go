package memfs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrInvalidSignature is returned by Verify for tampered, foreign or expired URLs.
var ErrInvalidSignature = errors.New("memfs: invalid or expired signature")

// Signer issues and verifies expiring HMAC-SHA256 URLs.
type Signer struct {
	key     []byte
	baseURL string
	clock   clock.Clock
}

// NewSigner returns a Signer. baseURL may be empty.
func NewSigner(key []byte, baseURL string, clk clock.Clock) *Signer {
	return &Signer{key: key, baseURL: strings.TrimRight(baseURL, "/"), clock: clk}
}

// Sign returns "<base>/<path>?expires=<unix>&signature=<hex>".
func (s *Signer) Sign(p string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("memfs: ttl must be positive")
	}
	expires := s.clock.Now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.mac(p, expires))
	return s.baseURL + "/" + (&url.URL{Path: p}).EscapedPath() + "?" + q.Encode(), nil
}

// Verify checks the signature and expiry of a URL produced by Sign.
func (s *Signer) Verify(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidSignature
	}
	p := strings.TrimPrefix(u.Path, "/")
	if s.baseURL != "" {
		base, err := url.Parse(s.baseURL)
		if err == nil {
			p = strings.TrimPrefix(strings.TrimPrefix(u.Path, base.Path), "/")
		}
	}
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	want := s.mac(p, expires)
	if !hmac.Equal([]byte(want), []byte(u.Query().Get("signature"))) {
		return "", ErrInvalidSignature
	}
	if s.clock.Now().Unix() > expires {
		return "", ErrInvalidSignature
	}
	return p, nil
}

func (s *Signer) mac(p string, expires int64) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(p))
	m.Write([]byte{'\n'})
	m.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(m.Sum(nil))
}
