package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"chat-ledger/internal/core/ports"
)

// BridgeSigner implements ports.SignatureService for the chat bridge. It owns
// the shared secret, so callers only ever handle requests and signatures.
type BridgeSigner struct {
	secret []byte
}

// NewBridgeSigner creates a signer keyed with the bridge secret.
func NewBridgeSigner(secret string) *BridgeSigner {
	return &BridgeSigner{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of the request's canonical form.
func (s *BridgeSigner) Sign(req ports.SignedRequest) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical(req)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. Signatures are case-insensitive hex.
func (s *BridgeSigner) Verify(req ports.SignedRequest, signature string) bool {
	expected := s.Sign(req)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// canonical renders METHOD|PATH|TIMESTAMP|NONCE|CALLER|BODY. The caller is
// part of it so the bridge cannot be made to act for another handle.
func canonical(req ports.SignedRequest) string {
	var b strings.Builder
	b.Grow(len(req.Method) + len(req.Path) + len(req.Nonce) + len(req.Caller) + len(req.Body) + 25)
	b.WriteString(strings.ToUpper(req.Method))
	b.WriteByte('|')
	b.WriteString(req.Path)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(req.Timestamp, 10))
	b.WriteByte('|')
	b.WriteString(req.Nonce)
	b.WriteByte('|')
	b.WriteString(req.Caller)
	b.WriteByte('|')
	b.Write(req.Body)
	return b.String()
}
