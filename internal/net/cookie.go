package net

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// CookieName is the auth cookie set by create/login.
const CookieName = "emberwake_auth"

// Signer signs and verifies auth cookies. The key is generated at process
// start, so cookies do not survive a restart.
type Signer struct {
	key []byte
}

func NewSigner() (*Signer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign builds the cookie value: accountID|username|base64(mac), the whole
// string base64-encoded.
func (s *Signer) Sign(accountID int64, username string) string {
	body := strconv.FormatInt(accountID, 10) + "|" + username + "|"
	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(body))
	signed := body + base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(signed))
}

// Verify decodes and checks a cookie value. Returns false for anything
// malformed or signed with a different key.
func (s *Signer) Verify(value string) (accountID int64, username string, ok bool) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return 0, "", false
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	body := parts[0] + "|" + parts[1] + "|"
	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(body))
	want, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, "", false
	}
	if !hmac.Equal(mac.Sum(nil), want) {
		return 0, "", false
	}
	return id, parts[1], true
}
