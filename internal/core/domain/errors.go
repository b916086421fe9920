package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSourceNotConfigured means the requested cost-factor source is unknown,
	// disabled or its backing file/row/object does not exist.
	ErrSourceNotConfigured = errors.New("cost factor source not configured")
	// ErrMalformedFactorSet means the factor set could not be decoded or failed validation.
	ErrMalformedFactorSet = errors.New("malformed cost factor set")

	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrVariationNotFound = errors.New("variation not found")
	ErrValidation        = errors.New("validation failed")
)

// ConfigurationError reports a problem resolving a cost-factor source.
type ConfigurationError struct {
	Source string
	Kind   error // ErrSourceNotConfigured or ErrMalformedFactorSet
	Err    error
}

func NewConfigurationError(source string, kind, err error) *ConfigurationError {
	return &ConfigurationError{Source: source, Kind: kind, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %q: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("source %q: %v: %v", e.Source, e.Kind, e.Err)
}

// Is lets errors.Is match on the sentinel kind.
func (e *ConfigurationError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ValidationError wraps a message so errors.Is(err, ErrValidation) holds.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CodeAggregationFailed is the machine-readable code for heatmap query failures.
const CodeAggregationFailed = "AGGREGATION_FAILED"

// ServiceError carries an HTTP-like status and a machine code to the transport layer.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewAggregationError wraps a repository failure from the heatmap service.
func NewAggregationError(message string, err error) *ServiceError {
	return &ServiceError{
		Status:  http.StatusInternalServerError,
		Code:    CodeAggregationFailed,
		Message: message,
		Err:     err,
	}
}
