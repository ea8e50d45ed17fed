package service

import (
	"errors"

	"selo/internal/sentinel"
	dErrors "selo/pkg/domain-errors"
)

// Provider error handling: translates sentinel errors from the wallet
// client into domain errors exactly once, at this boundary.

// providerErrorMapping defines how a sentinel error maps to a domain error.
type providerErrorMapping struct {
	sentinel error
	code     dErrors.Code
	msg      string
}

// providerErrorMappings defines error translations in priority order.
// First match wins.
var providerErrorMappings = []providerErrorMapping{
	{sentinel.ErrUnavailable, dErrors.CodeTransientProvider, "wallet provider unavailable"},
	{sentinel.ErrInvalidInput, dErrors.CodeValidation, "wallet provider rejected request"},
	{sentinel.ErrNotFound, dErrors.CodeNotFound, "wallet pass not found at provider"},
}

// translateProviderError maps dependency errors into domain errors.
// Existing domain errors pass through untouched.
func translateProviderError(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	for _, m := range providerErrorMappings {
		if errors.Is(err, m.sentinel) {
			return dErrors.Wrap(err, m.code, m.msg)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "wallet provider call failed")
}

// translateStoreError maps store lookup errors into domain errors.
func translateStoreError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "could not load "+what)
}
