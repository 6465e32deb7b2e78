package kms

import (
	"context"
	"fmt"
	"path"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/pkg/logger"
)

// VaultSecretSource reads the key secrets from a Vault KV v2 secret holding
// "record_key" and "token_key" (or "DB_KEY" and "MSG_KEY").
type VaultSecretSource struct {
	vaultClient *vault.Client
	logger      logger.Logger
	config      config.VaultConfig
}

// NewVaultSecretSource creates a Vault client from cfg.
func NewVaultSecretSource(cfg config.VaultConfig, log logger.Logger) (*VaultSecretSource, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	if cfg.Timeout > 0 {
		vc.Timeout = cfg.Timeout
	}
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return NewVaultSecretSourceWithClient(cfg, client, log), nil
}

// NewVaultSecretSourceWithClient uses an existing client.
func NewVaultSecretSourceWithClient(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultSecretSource {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.SecretPath == "" {
		cfg.SecretPath = "credence"
	}
	return &VaultSecretSource{
		vaultClient: client,
		logger:      log.WithComponent("VaultSecretSource"),
		config:      cfg,
	}
}

// secretRef is the KV v2 data path, e.g. secret/data/credence.
func (s *VaultSecretSource) secretRef() string {
	return path.Join(s.config.MountPath, "data", s.config.SecretPath)
}

func (s *VaultSecretSource) FetchKeySecrets(ctx context.Context) (KeySecrets, error) {
	ref := s.secretRef()
	start := time.Now()

	secret, err := s.vaultClient.Logical().ReadWithContext(ctx, ref)
	if err != nil {
		s.logger.Error(ctx, "Failed to read key secrets from vault", err, logger.String("path", ref))
		return KeySecrets{}, fmt.Errorf("could not read key secrets from vault: %w", err)
	}
	if secret == nil || secret.Data["data"] == nil {
		return KeySecrets{}, fmt.Errorf("key secrets not found in vault at %s", ref)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return KeySecrets{}, fmt.Errorf("invalid secret format in vault at %s", ref)
	}

	out := KeySecrets{
		RecordKey: firstString(data, "record_key", "DB_KEY"),
		TokenKey:  firstString(data, "token_key", "MSG_KEY"),
	}
	s.logger.Info(ctx, "Key secrets read from vault",
		logger.String("path", ref),
		logger.Bool("record_present", out.RecordKey != ""),
		logger.Bool("signing_present", out.TokenKey != ""),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
