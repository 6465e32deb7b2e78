// Package kms loads the process key secrets from the environment or from
// HashiCorp Vault and turns them into a crypto.KeyStore.
package kms

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/pkg/logger"
)

// KeySecrets are the base64 key secrets for both KeyStore slots.
type KeySecrets struct {
	RecordKey string
	TokenKey  string
}

// String never prints key material.
func (s KeySecrets) String() string {
	return fmt.Sprintf("KeySecrets{RecordKey:%t TokenKey:%t}", s.RecordKey != "", s.TokenKey != "")
}

func (s KeySecrets) GoString() string {
	return s.String()
}

// SecretSource yields the key secrets once at startup.
type SecretSource interface {
	FetchKeySecrets(ctx context.Context) (KeySecrets, error)
}

// EnvSecretSource returns the secrets already resolved by the config loader
// from DB_KEY and MSG_KEY.
type EnvSecretSource struct {
	cfg config.SecretsConfig
}

func NewEnvSecretSource(cfg config.SecretsConfig) *EnvSecretSource {
	return &EnvSecretSource{cfg: cfg}
}

func (s *EnvSecretSource) FetchKeySecrets(context.Context) (KeySecrets, error) {
	return KeySecrets{
		RecordKey: strings.TrimSpace(s.cfg.RecordKey),
		TokenKey:  strings.TrimSpace(s.cfg.TokenKey),
	}, nil
}

// NewSecretSource picks the source named by cfg.Secrets.Source.
func NewSecretSource(cfg *config.Config, log logger.Logger) (SecretSource, error) {
	switch cfg.Secrets.Source {
	case "vault":
		return NewVaultSecretSource(cfg.Vault, log)
	case "env", "":
		return NewEnvSecretSource(cfg.Secrets), nil
	default:
		return nil, fmt.Errorf("unknown secrets source %q", cfg.Secrets.Source)
	}
}

// LoadKeyStore fetches the secrets from src and builds a KeyStore with both
// slots configured. Either key missing is an error.
func LoadKeyStore(ctx context.Context, src SecretSource, log logger.Logger) (*crypto.KeyStore, error) {
	secrets, err := src.FetchKeySecrets(ctx)
	if err != nil {
		return nil, err
	}
	ks, err := crypto.NewKeyStore(
		crypto.WithRecordKey(secrets.RecordKey),
		crypto.WithTokenKey(secrets.TokenKey),
	)
	if err != nil {
		return nil, err
	}
	if err := ks.Require(crypto.SlotRecordEncryption, crypto.SlotTokenSigning); err != nil {
		return nil, err
	}
	log.Info(ctx, "Key store initialised", logger.String("slots", ks.String()))
	return ks, nil
}
