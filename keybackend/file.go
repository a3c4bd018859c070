package keybackend

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultKeyFile is looked up in the working directory when no secret is
// given on the command line or in config.
const DefaultKeyFile = ".storehouse_key"

// LoadSecretFromFile reads a secret from path. Surrounding whitespace,
// including the trailing newline editors add, is trimmed.
func LoadSecretFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	secret := bytes.TrimSpace(data)
	if len(secret) == 0 {
		return nil, fmt.Errorf("read key file %s: %w", path, ErrEmptySecret)
	}

	return secret, nil
}

// GenerateSecret returns n random bytes rendered as hex.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// WriteSecretFile writes secret to path with mode 0600. An existing file is
// only replaced when force is set.
func WriteSecretFile(path, secret string, force bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o600) //nolint:gosec // Path is from trusted config
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("write key file: %s already exists", path)
		}
		return fmt.Errorf("write key file: %w", err)
	}

	if _, err := f.WriteString(secret + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
