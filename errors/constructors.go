package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *GroveError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *GroveError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// TransportFailed wraps a connection-level failure for a feed endpoint.
func TransportFailed(url string, err error) *GroveError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("transport failure on %s", url)).
		WithDetail("url", url)
}

// DecodeFailed wraps a malformed envelope. Stage is "envelope" for the outer
// frame or "nested" for the payload carried in the wrapper field.
func DecodeFailed(stage string, err error) *GroveError {
	return Wrap(err, ErrCodeDecode, fmt.Sprintf("failed to decode %s", stage)).
		WithDetail("stage", stage)
}

// InvalidFormat creates an error for a structurally wrong producer payload.
func InvalidFormat(reason string) *GroveError {
	return New(ErrCodeInvalidFormat, fmt.Sprintf("invalid data format: %s", reason))
}

// InvalidVariable creates an error for selecting a variable that is not in the dataset.
func InvalidVariable(name string, available []string) *GroveError {
	return New(ErrCodeInvalidVariable, fmt.Sprintf("variable '%s' not found", name)).
		WithDetail("variable", name).
		WithDetail("available", available)
}

// InvalidInput creates a generic bad-argument error.
func InvalidInput(field string, value interface{}) *GroveError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid value for %s: %v", field, value)).
		WithDetail("field", field).
		WithDetail("value", value)
}
