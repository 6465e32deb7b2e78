// Package crypto implements the trust primitives of the Credence API: the
// process key store, password digests, field-level encryption and auth tokens.
package crypto

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
)

// KeySlot names one of the independent keys held by a KeyStore.
type KeySlot string

const (
	// SlotRecordEncryption keys the FieldCipher.
	SlotRecordEncryption KeySlot = "record_encryption"
	// SlotTokenSigning keys the TokenManager.
	SlotTokenSigning KeySlot = "token_signing"
)

// KeyStore holds the process key material. It is built once at startup by
// NewKeyStore and never mutated afterwards, so it can be shared by pointer
// between goroutines without locking.
type KeyStore struct {
	keys map[KeySlot][constants.KeySize]byte
}

// KeyOption sets up one key slot during construction.
type KeyOption func(map[KeySlot]string)

// WithRecordKey sets the record-encryption key from its base64 secret.
func WithRecordKey(secret string) KeyOption {
	return withKey(SlotRecordEncryption, secret)
}

// WithTokenKey sets the token-signing key from its base64 secret.
func WithTokenKey(secret string) KeyOption {
	return withKey(SlotTokenSigning, secret)
}

// withKey replaces any earlier secret given for the same slot.
func withKey(slot KeySlot, secret string) KeyOption {
	return func(m map[KeySlot]string) {
		m[slot] = secret
	}
}

// NewKeyStore decodes every configured secret. A secret must be standard
// base64 of exactly constants.KeySize bytes. Empty secrets leave the slot
// unconfigured; use Require to fail fast on missing slots.
func NewKeyStore(opts ...KeyOption) (*KeyStore, error) {
	secrets := make(map[KeySlot]string)
	for _, opt := range opts {
		opt(secrets)
	}

	ks := &KeyStore{keys: make(map[KeySlot][constants.KeySize]byte, len(secrets))}
	for slot, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(secret)
		if err != nil || len(raw) != constants.KeySize {
			// The secret itself must not end up in the error.
			return nil, fmt.Errorf("key slot %s: secret must be base64 of %d bytes", slot, constants.KeySize)
		}
		var key [constants.KeySize]byte
		copy(key[:], raw)
		ks.keys[slot] = key
	}
	return ks, nil
}

// Key returns a copy of the key in slot. Callers should use it for a single
// operation and not retain it.
func (s *KeyStore) Key(slot KeySlot) ([constants.KeySize]byte, error) {
	if s == nil {
		return [constants.KeySize]byte{}, errors.ErrNotConfigured.WithMetadata("slot", string(slot))
	}
	key, ok := s.keys[slot]
	if !ok {
		return [constants.KeySize]byte{}, errors.ErrNotConfigured.WithMetadata("slot", string(slot))
	}
	return key, nil
}

// Has reports whether slot is configured.
func (s *KeyStore) Has(slot KeySlot) bool {
	if s == nil {
		return false
	}
	_, ok := s.keys[slot]
	return ok
}

// Require returns ErrNotConfigured naming the first missing slot.
func (s *KeyStore) Require(slots ...KeySlot) error {
	for _, slot := range slots {
		if !s.Has(slot) {
			return errors.ErrNotConfigured.
				WithMessage(fmt.Sprintf("key slot %s not configured", slot)).
				WithMetadata("slot", string(slot))
		}
	}
	return nil
}

// String never prints key material.
func (s *KeyStore) String() string {
	if s == nil {
		return "KeyStore(nil)"
	}
	slots := make([]string, 0, len(s.keys))
	for slot := range s.keys {
		slots = append(slots, string(slot))
	}
	sort.Strings(slots)
	return fmt.Sprintf("KeyStore(%s)", strings.Join(slots, ","))
}

// GoString keeps %#v from dumping the key map.
func (s *KeyStore) GoString() string {
	return s.String()
}

// GenerateKeySecret returns a fresh random key encoded the way NewKeyStore expects.
func GenerateKeySecret() (string, error) {
	raw, err := randomBytes(constants.KeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
