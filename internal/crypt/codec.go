// Package crypt provides authenticated encryption of field payloads plus the
// pseudonymization helpers built on the same key.
//
// Token format (internal to this package; storage treats it as an opaque blob):
//
//	version(1) || nonce(12) || AES-256-GCM ciphertext || tag(16)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vault/internal/vaulterr"
)

const (
	tokenVersion byte = 0x01

	// KeySize is the required key length in bytes.
	KeySize = 32

	// DomainPseudonym separates pseudonym hashes from any other SHA-256 use.
	DomainPseudonym = "vault/pseudonym/v1"

	redactionPrefixLen = 8
)

// Codec encrypts and decrypts payloads under a single key.
type Codec struct {
	aead cipher.AEAD
}

// New creates a Codec for a KeySize-byte key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, vaulterr.Validation("new codec", "key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext into a self-describing token.
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	token := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	token[0] = tokenVersion
	if _, err := io.ReadFull(rand.Reader, token[1:]); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return c.aead.Seal(token, token[1:], plaintext, nil), nil
}

// Decrypt opens a token produced by Encrypt. Any malformed, foreign-key or
// tampered token yields a DECRYPTION_FAILED error and no plaintext.
func (c *Codec) Decrypt(token []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(token) < 1+nonceSize+c.aead.Overhead() {
		return nil, vaulterr.Decryption("decrypt", fmt.Sprintf("token too short (%d bytes)", len(token)), nil)
	}
	if token[0] != tokenVersion {
		return nil, vaulterr.Decryption("decrypt", fmt.Sprintf("unknown token version %d", token[0]), nil)
	}
	nonce, sealed := token[1:1+nonceSize], token[1+nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, vaulterr.Decryption("decrypt", "wrong key or tampered data", err)
	}
	return plaintext, nil
}

// EncryptString is Encrypt for text payloads.
func (c *Codec) EncryptString(s string) ([]byte, error) {
	return c.Encrypt([]byte(s))
}

// DecryptString is Decrypt for text payloads.
func (c *Codec) DecryptString(token []byte) (string, error) {
	b, err := c.Decrypt(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hash returns the hex SHA-256 digest of text under DomainPseudonym.
// Format: SHA256(domain || 0x00 || text).
func Hash(text string) string {
	h := sha256.New()
	h.Write([]byte(DomainPseudonym))
	h.Write([]byte{0x00})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Hash is the method form of the package-level Hash.
func (c *Codec) Hash(text string) string {
	return Hash(text)
}

// RedactionMarker returns the marker substituted for entity by Anonymize.
func RedactionMarker(entity string) string {
	return "[REDACTED_" + Hash(norm.NFC.String(entity))[:redactionPrefixLen] + "]"
}

// Anonymize replaces every literal occurrence of each entity with its
// redaction marker. Matching is done on the NFC form of text and entities, so
// composed and decomposed spellings redact identically, but bytes outside a
// match are copied from text unchanged. Matches are leftmost-longest and
// non-overlapping, and an inserted marker is never matched again. A match
// that would split a combining sequence in text is not a literal occurrence
// and is left alone.
func Anonymize(text string, entities []string) string {
	patterns := make([]string, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		e = norm.NFC.String(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		patterns = append(patterns, e)
	}
	if len(patterns) == 0 || text == "" {
		return text
	}

	normalized, offsets := nfcWithOffsets(text)
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostLongestMatch,
	})
	ac := builder.Build(patterns)

	var b strings.Builder
	last := 0
	for _, m := range ac.FindAll(normalized) {
		start, okStart := offsets[m.Start()]
		end, okEnd := offsets[m.End()]
		if !okStart || !okEnd || start < last {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(RedactionMarker(patterns[m.Pattern()]))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// nfcWithOffsets returns the NFC form of text and a map from each
// normalization boundary in that form to the matching offset in text.
func nfcWithOffsets(text string) (string, map[int]int) {
	var b strings.Builder
	offsets := map[int]int{0: 0}
	for pos := 0; pos < len(text); {
		n := norm.NFC.NextBoundaryInString(text[pos:], true)
		if n <= 0 {
			n = len(text) - pos
		}
		b.WriteString(norm.NFC.String(text[pos : pos+n]))
		pos += n
		offsets[b.Len()] = pos
	}
	return b.String(), offsets
}

// Anonymize is the method form of the package-level Anonymize.
func (c *Codec) Anonymize(text string, entities []string) string {
	return Anonymize(text, entities)
}
