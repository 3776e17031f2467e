// Copyright 2025 Truthcrawl Project
//
// Package codec provides the canonical text serialization shared by every
// persisted entity in the log: deterministic field ordering, lowercase hex,
// and LF-terminated lines. Hashes and signatures are always computed over
// these exact bytes.

package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidCanonicalForm is returned when parsed text does not match the
// expected canonical layout: wrong field order, extra whitespace, an upper
// case hex digit, or a missing mandatory field.
var ErrInvalidCanonicalForm = errors.New("invalid canonical form")

// ErrInvalidHex is returned by the hex helpers for odd-length or
// non-hex-alphabet input.
var ErrInvalidHex = errors.New("invalid hex encoding")

// FormError wraps ErrInvalidCanonicalForm with the offending detail so
// callers can report which field or line failed to parse.
type FormError struct {
	Detail string
}

func (e *FormError) Error() string {
	return "invalid canonical form: " + e.Detail
}

func (e *FormError) Unwrap() error {
	return ErrInvalidCanonicalForm
}

func formErrorf(format string, args ...interface{}) error {
	return &FormError{Detail: fmt.Sprintf(format, args...)}
}
