package bybit

import (
	"errors"
	"fmt"
)

// BybitError represents a non-zero retCode returned by the API
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeServerError          = 10016
	ErrCodeInvalidAPIKey        = 10003
	ErrCodeInvalidSignature     = 10004
	ErrCodePermissionDenied     = 10005
	ErrCodeRateLimitExceeded    = 10006
	ErrCodeOrderNotFound        = 110001
	ErrCodeInsufficientBalance  = 110007
	ErrCodeInvalidQuantity      = 110020
	ErrCodeLeverageNotModified  = 110043
	ErrCodeMarginNotModified    = 110026
	ErrCodeReduceOnlyNoPosition = 110017
)

// IsRetryableError reports rate limiting and transient server failures
func IsRetryableError(err error) bool {
	var bybitErr *BybitError
	if !errors.As(err, &bybitErr) {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeRateLimitExceeded, ErrCodeServerError:
		return true
	}
	return false
}

// IsAuthenticationError checks if the error is related to authentication
func IsAuthenticationError(err error) bool {
	var bybitErr *BybitError
	if !errors.As(err, &bybitErr) {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature, ErrCodePermissionDenied:
		return true
	}
	return false
}

// hasCode reports whether err is a BybitError with the given code
func hasCode(err error, code int) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr) && bybitErr.Code == code
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return &BybitError{Code: retCode, Message: retMsg}
}
