// Package id provides utilities for generating URL-safe identifiers.
//
// Identifiers are generated using UUIDv4 bytes encoded as base32 (RFC 4648)
// with no padding. The resulting strings are 26 characters long, lowercase,
// and safe for use in URLs and file paths.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Valid reports whether s has the shape of an identifier produced by NewID.
func Valid(s string) bool {
	if len(s) != 26 || strings.ToLower(s) != s {
		return false
	}
	b, err := encoding.DecodeString(strings.ToUpper(s))
	if err != nil || len(b) != 16 {
		return false
	}
	_, err = uuid.FromBytes(b)
	return err == nil
}
