package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/turtacn/credence/pkg/errors"
)

const nonceSize = 24

// FieldCipher encrypts individual database column values with the
// record-encryption key. Each value is stored as standard base64 of
// nonce || secretbox(plaintext).
type FieldCipher struct {
	keys *KeyStore
}

// NewFieldCipher returns a cipher bound to ks. The record slot must be configured.
func NewFieldCipher(ks *KeyStore) (*FieldCipher, error) {
	if err := ks.Require(SlotRecordEncryption); err != nil {
		return nil, err
	}
	return &FieldCipher{keys: ks}, nil
}

// Encrypt seals plaintext under a fresh random nonce. Encrypting the same
// value twice yields different outputs.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	key, err := c.keys.Key(SlotRecordEncryption)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errors.ErrInternal("failed to read nonce", err)
	}

	out := make([]byte, nonceSize, nonceSize+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	out = secretbox.Seal(out, []byte(plaintext), &nonce, &key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt under the same key. Malformed or
// altered input is ErrTamperedOrCorrupt; partial plaintext is never returned.
func (c *FieldCipher) Decrypt(stored string) (string, error) {
	key, err := c.keys.Key(SlotRecordEncryption)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.Strict().DecodeString(stored)
	if err != nil {
		return "", errors.ErrTamperedOrCorrupt.WithMessage("encrypted field is not valid base64")
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.ErrTamperedOrCorrupt.WithMessage("encrypted field too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &key)
	if !ok {
		return "", errors.ErrTamperedOrCorrupt
	}
	return string(plain), nil
}

// EncryptOptional leaves an empty value empty so optional columns stay NULL-like.
func (c *FieldCipher) EncryptOptional(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return c.Encrypt(plaintext)
}

// DecryptOptional is the inverse of EncryptOptional.
func (c *FieldCipher) DecryptOptional(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	return c.Decrypt(stored)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}
