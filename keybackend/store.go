package keybackend

import (
	"errors"
	"fmt"
	"io/fs"
)

// SecretConfig says where the shared secret comes from.
type SecretConfig struct {
	Secret string `mapstructure:"secret"` // Inline secret, wins over File
	File   string `mapstructure:"secret_file"`
}

// ResolveSecret returns the inline secret if set, else the contents of
// File. A missing key file yields ErrNoSecret; an unreadable one is
// reported as is.
func ResolveSecret(cfg SecretConfig) ([]byte, error) {
	if cfg.Secret != "" {
		return []byte(cfg.Secret), nil
	}

	if cfg.File == "" {
		return nil, ErrNoSecret
	}

	secret, err := LoadSecretFromFile(cfg.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoSecret, cfg.File)
		}
		return nil, err
	}

	return secret, nil
}
