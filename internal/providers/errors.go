package providers

import "fmt"

// ProviderError is an upstream search failure. StatusCode and Body are set
// when the upstream answered.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// AuthError is a failure to obtain credentials for an upstream.
type AuthError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s auth: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return e.Provider + " auth: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
