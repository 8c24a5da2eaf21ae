// Package challenge issues human-verification challenges and validates
// claimed solutions.
//
// There is no server-side record of issued challenges. The solution digest
// (HMAC of the solution text under the server secret) travels to the client
// next to the image and comes back with the claimed answer, so verification
// is a pure function of (answer, digest, secret). A consequence is that a
// digest stays valid for repeated attempts with the same answer for as long
// as the client holds on to it.
package challenge

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dchest/captcha"
)

// ErrUnconfigured means no server secret is set. Callers must treat this as
// a hard failure; verification against an unconfigured service always fails.
var ErrUnconfigured = errors.New("challenge: server secret not configured")

// Challenge is one issued puzzle: a rendered PNG for display and the opaque
// token (solution digest) the client must echo back with its answer.
type Challenge struct {
	Image []byte
	Token string
}

// Options select cosmetic presentation only; they never affect what counts
// as a correct answer.
type Options struct {
	Width  int
	Height int
	Length int
}

// Service issues and verifies challenges. Safe for concurrent use.
type Service struct {
	secret []byte
	opts   Options
}

// New builds a Service with the given server secret. An empty secret yields
// a service whose Issue fails and whose Verify always returns false.
func New(secret string, opts Options) *Service {
	if opts.Width <= 0 {
		opts.Width = captcha.StdWidth
	}
	if opts.Height <= 0 {
		opts.Height = captcha.StdHeight
	}
	if opts.Length <= 0 {
		opts.Length = captcha.DefaultLen
	}
	return &Service{secret: []byte(secret), opts: opts}
}

// Issue generates a fresh random solution, renders it, and returns the image
// with the matching token. Solutions are never reused across issuances.
func (s *Service) Issue() (*Challenge, error) {
	if len(s.secret) == 0 {
		return nil, ErrUnconfigured
	}
	digits := captcha.RandomDigits(s.opts.Length)
	img := captcha.NewImage("", digits, s.opts.Width, s.opts.Height)

	var buf bytes.Buffer
	if _, err := img.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("challenge: render image: %w", err)
	}
	return &Challenge{
		Image: buf.Bytes(),
		Token: s.digest(digitsToText(digits)),
	}, nil
}

// Verify reports whether claimed is the solution bound to token. It fails
// closed: false for an empty answer, an empty or malformed token, or an
// unconfigured secret. It never returns an error and has no side effects.
func (s *Service) Verify(claimed, token string) bool {
	if len(s.secret) == 0 || claimed == "" || token == "" {
		return false
	}
	want, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(claimed))
	return hmac.Equal(mac.Sum(nil), want)
}

func (s *Service) digest(solution string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(solution))
	return hex.EncodeToString(mac.Sum(nil))
}

func digitsToText(digits []byte) string {
	text := make([]byte, len(digits))
	for i, d := range digits {
		text[i] = '0' + d
	}
	return string(text)
}
