package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/credence/pkg/errors"
)

func TestFieldCipher_RoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"ascii", "Hello World!"},
		{"empty", ""},
		{"unicode", "résumé ✓ 日本語"},
		{"long", string(make([]byte, 4096))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			if tt.plaintext != "" {
				assert.NotContains(t, stored, tt.plaintext)
			}

			got, err := c.Decrypt(stored)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestFieldCipher_FreshNonce(t *testing.T) {
	c, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	a, err := c.Encrypt("same value")
	require.NoError(t, err)
	b, err := c.Encrypt("same value")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFieldCipher_WrongKeyFails(t *testing.T) {
	a, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)
	b, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	stored, err := a.Encrypt("only a can read this")
	require.NoError(t, err)

	_, err = b.Decrypt(stored)
	assert.True(t, errors.Is(err, errors.ErrTamperedOrCorrupt))
}

func TestFieldCipher_StableAcrossInstances(t *testing.T) {
	secret := testSecret(t)
	ks1, err := NewKeyStore(WithRecordKey(secret))
	require.NoError(t, err)
	ks2, err := NewKeyStore(WithRecordKey(secret))
	require.NoError(t, err)

	c1, err := NewFieldCipher(ks1)
	require.NoError(t, err)
	c2, err := NewFieldCipher(ks2)
	require.NoError(t, err)

	stored, err := c1.Encrypt("survives restart")
	require.NoError(t, err)
	got, err := c2.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "survives restart", got)
}

func TestFieldCipher_AnyByteFlipFails(t *testing.T) {
	c, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	stored, err := c.Encrypt("tamper me")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(stored)
	require.NoError(t, err)

	for i := range raw {
		flipped := append([]byte(nil), raw...)
		flipped[i] ^= 0x01
		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(flipped))
		assert.Truef(t, errors.Is(err, errors.ErrTamperedOrCorrupt), "byte %d", i)
	}
}

func TestFieldCipher_Malformed(t *testing.T) {
	c, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		stored string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"shorter than nonce", base64.StdEncoding.EncodeToString(make([]byte, 10))},
		{"nonce without tag", base64.StdEncoding.EncodeToString(make([]byte, 24+15))},
		{"zeros", base64.StdEncoding.EncodeToString(make([]byte, 64))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decrypt(tt.stored)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, errors.ErrTamperedOrCorrupt))
		})
	}
}

func TestFieldCipher_Optional(t *testing.T) {
	c, err := NewFieldCipher(testKeyStore(t))
	require.NoError(t, err)

	stored, err := c.EncryptOptional("")
	require.NoError(t, err)
	assert.Empty(t, stored)

	got, err := c.DecryptOptional("")
	require.NoError(t, err)
	assert.Empty(t, got)

	stored, err = c.EncryptOptional("x")
	require.NoError(t, err)
	got, err = c.DecryptOptional(stored)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestNewFieldCipher_RequiresRecordKey(t *testing.T) {
	ks, err := NewKeyStore(WithTokenKey(testSecret(t)))
	require.NoError(t, err)

	_, err = NewFieldCipher(ks)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}
