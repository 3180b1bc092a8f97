// Package telemetry scrubs prompts, attachments and credentials before they
// reach logs or span attributes.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PIILevel defines how much user content may be recorded.
type PIILevel string

const (
	// PIILevelNone redacts all user content
	PIILevelNone PIILevel = "none"
	// PIILevelHashed hashes detected PII with a salt
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

const redacted = "[REDACTED]"

// Sanitizer scrubs user content for telemetry.
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
	ipv4Pattern  *regexp.Regexp
}

// NewSanitizer creates a sanitizer. salt keeps hashes stable per deployment.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{
		level:        level,
		salt:         salt,
		emailPattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern: regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		ipv4Pattern:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	}
}

// Level returns the configured level.
func (s *Sanitizer) Level() PIILevel { return s.level }

// SanitizePrompt scrubs a prompt or streamed text.
func (s *Sanitizer) SanitizePrompt(input string) string {
	switch s.level {
	case PIILevelNone:
		return redacted
	case PIILevelFull:
		return input
	default:
		return s.hashPII(input)
	}
}

// SanitizeAttachment scrubs an attachment display name. The id is an opaque
// reference and is kept.
func (s *Sanitizer) SanitizeAttachment(name string) string {
	if name == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return redacted
	case PIILevelFull:
		return name
	default:
		return s.hash(name)
	}
}

func (s *Sanitizer) hashPII(input string) string {
	result := s.emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	result = s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
	return s.ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.hash(match))
	})
}

func (s *Sanitizer) hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data + s.salt))
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// RedactURL hides the token and prompt query parameters of a stream URL.
// Unparseable input is returned fully redacted.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	q := u.Query()
	for _, key := range []string{"token", "prompt", "context"} {
		if q.Has(key) {
			q.Set(key, redacted)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactToken keeps only a short prefix of a bearer token.
func RedactToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return redacted
	}
	return token[:4] + "..." + redacted
}
