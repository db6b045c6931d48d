package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailbrief"

// Well-known secret keys.
const (
	KeyIMAPPassword = "imap-password"
	KeyProxySecret  = "proxy-secret"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailbrief/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailbrief-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// GetSecret retrieves a secret value by key from the system keyring.
func GetSecret(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", key, err)
	}

	return string(item.Data), nil
}

// SetSecret stores a secret value by key in the system keyring.
func SetSecret(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting secret %q: %w", key, err)
	}

	return nil
}

// DeleteSecret removes a secret by key from the system keyring.
func DeleteSecret(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting secret %q: %w", key, err)
	}

	return nil
}

// SecretOr returns the configured value when non-empty, otherwise the
// keyring entry for key, otherwise empty.
func SecretOr(configured, key string) string {
	if configured != "" {
		return configured
	}
	value, err := GetSecret(key)
	if err != nil {
		return ""
	}
	return value
}
