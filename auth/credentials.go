package auth

import (
	"errors"
	"fmt"
)

// Credentials holds an API key pair. Immutable for the lifetime of a
// client instance.
type Credentials struct {
	Key    string
	Secret string
}

// NewCredentials validates and builds a credential pair. Malformed
// credentials are a configuration problem and fail here, at
// construction, never per-request.
func NewCredentials(key, secret string) (Credentials, error) {
	if key == "" {
		return Credentials{}, &ConfigurationError{Field: "key", Reason: "must not be empty"}
	}
	if secret == "" {
		return Credentials{}, &ConfigurationError{Field: "secret", Reason: "must not be empty"}
	}
	return Credentials{Key: key, Secret: secret}, nil
}

// String implements fmt.Stringer with the secret masked, so credentials
// can never leak through formatted output.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Key: %s, Secret: ****}", mask(c.Key))
}

// GoString mirrors String for %#v formatting.
func (c Credentials) GoString() string {
	return c.String()
}

func mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + "****"
}

// ConfigurationError reports malformed client configuration. It is
// fatal: construction fails and no request is attempted.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("auth: invalid configuration: %s %s", e.Field, e.Reason)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}
