// Package identity classifies client-supplied video identifiers.
//
// A video can be addressed two ways: by the opaque 24-hex id assigned at
// creation, or by the 32-hex md5 fingerprint of its media bytes. Every place
// an identifier crosses the API boundary (reads, writes, rate-limit keys)
// must resolve it through this package so lookups never diverge for the same
// logical video.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidFormat is returned for identifiers that are neither an opaque id
// nor a content fingerprint.
var ErrInvalidFormat = errors.New("invalid resource identifier")

type Kind int

const (
	// Opaque is a generated 24-hex-char id.
	Opaque Kind = iota
	// Fingerprint is a content-derived 32-hex-char md5 digest.
	Fingerprint
)

// Key is a resolved, canonical (lowercase) video identifier.
type Key struct {
	Kind  Kind
	Value string
}

var (
	opaqueRe      = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	fingerprintRe = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// Resolve classifies raw and normalizes it to lowercase. It is total: every
// string maps to exactly one of Opaque, Fingerprint, or ErrInvalidFormat.
func Resolve(raw string) (Key, error) {
	switch {
	case opaqueRe.MatchString(raw):
		return Key{Kind: Opaque, Value: strings.ToLower(raw)}, nil
	case fingerprintRe.MatchString(raw):
		return Key{Kind: Fingerprint, Value: strings.ToLower(raw)}, nil
	default:
		return Key{}, ErrInvalidFormat
	}
}

// String renders the key with a kind prefix so opaque ids and fingerprints
// can never collide when used inside composite keys (e.g. rate limiting).
func (k Key) String() string {
	if k.Kind == Fingerprint {
		return "fp:" + k.Value
	}
	return "id:" + k.Value
}

// NewOpaqueID generates a fresh 24-hex-char id for a new video or comment.
func NewOpaqueID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("identity: crypto/rand read: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
