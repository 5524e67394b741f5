package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	KeyringService = "isolog"
	KeyringUser    = "api-secret"
)

var (
	ErrSecretNotFound     = errors.New("api secret not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func LoadKeyringSecret() (string, error) {
	secret, err := keyring.Get(KeyringService, KeyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func StoreKeyringSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretMissing
	}
	if err := keyring.Set(KeyringService, KeyringUser, secret); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// SecretSource names where ResolveSecret found the secret.
type SecretSource string

const (
	SecretFromConfig        SecretSource = "config"
	SecretFromKeyring       SecretSource = "keyring"
	SecretGenerated         SecretSource = "generated"
	SecretGeneratedUnstored SecretSource = "generated-unstored"
)

// ResolveSecret returns the configured secret, else the keyring one, else a
// new secret. A new secret is stored in the keyring when possible; when it is
// not, the source says so and the caller has to persist it elsewhere.
func ResolveSecret(configured string) (string, SecretSource, error) {
	if secret := strings.TrimSpace(configured); secret != "" {
		return secret, SecretFromConfig, nil
	}

	secret, err := LoadKeyringSecret()
	if err == nil && strings.TrimSpace(secret) != "" {
		return secret, SecretFromKeyring, nil
	}

	generated, genErr := GenerateSecret()
	if genErr != nil {
		return "", "", fmt.Errorf("generate api secret: %w", genErr)
	}
	if errors.Is(err, ErrKeyringUnavailable) {
		return generated, SecretGeneratedUnstored, nil
	}
	if storeErr := StoreKeyringSecret(generated); storeErr != nil {
		return generated, SecretGeneratedUnstored, nil
	}
	return generated, SecretGenerated, nil
}
