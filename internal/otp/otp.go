// Package otp issues and verifies the 6-digit one-time codes used by the
// forgot-password and signup-verification flows.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/patrickmn/go-cache"
)

// CodeTTL is how long an issued code stays valid.
const CodeTTL = 10 * time.Minute

// Code types.
const (
	TypeReset  = "reset"
	TypeSignup = "signup"
)

// Store keeps pending codes in memory with automatic expiry. A successful
// reset verification opens a window, also bounded by CodeTTL, in which the
// password may be reset once.
type Store struct {
	codes *cache.Cache
}

// NewStore builds an empty code store.
func NewStore() *Store {
	return &Store{codes: cache.New(CodeTTL, time.Minute)}
}

func codeKey(identifier, codeType string) string {
	return codeType + ":" + identifier
}

func verifiedKey(identifier string) string {
	return "verified:" + identifier
}

// Issue generates a fresh 6-digit code for the identifier (email or phone),
// replacing any previous one of the same type.
func (s *Store) Issue(identifier, codeType string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	s.codes.Set(codeKey(identifier, codeType), code, CodeTTL)
	return code, nil
}

// Verify checks the submitted code. A match consumes the code; a reset match
// additionally marks the identifier as verified so the password can be reset.
func (s *Store) Verify(identifier, codeType, code string) bool {
	key := codeKey(identifier, codeType)
	stored, found := s.codes.Get(key)
	if !found || stored.(string) != code {
		return false
	}
	s.codes.Delete(key)
	if codeType == TypeReset {
		s.codes.Set(verifiedKey(identifier), true, CodeTTL)
	}
	return true
}

// ConsumeVerified reports whether the identifier passed reset verification,
// consuming the verification so it cannot be replayed.
func (s *Store) ConsumeVerified(identifier string) bool {
	key := verifiedKey(identifier)
	if _, found := s.codes.Get(key); !found {
		return false
	}
	s.codes.Delete(key)
	return true
}
