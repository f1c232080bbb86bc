package secrets

import "errors"

var (
	ErrSecretNotFound          = errors.New("secret not found")
	ErrUnsupportedSecretsStore = errors.New("unsupported secrets store")
)
