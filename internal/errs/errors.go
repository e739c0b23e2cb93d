package errs

import (
	"errors"
	"fmt"
)

// Failure categories a platform API error is classified into, so callers
// can react without parsing provider error text.
const (
	CategoryAuthExpired      = "auth_expired"
	CategoryRateLimited      = "rate_limited"
	CategoryDuplicateContent = "duplicate_content"
	CategoryUnknown          = "unknown"
)

// ConfigurationError is fatal and only raised during startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ValidationError covers malformed, expired or mismatched client input
// such as OAuth state values or token wire strings. It never crosses the
// component that detected it other than as a 4xx or a boolean.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// EncryptionError marks a token blob that failed to decrypt, either
// because the wire format is malformed or the authentication tag did not
// verify. The blob must be discarded, never partially trusted.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption error: %s", e.Reason)
}

// ExternalAPIError is a platform-side failure, classified into one of
// the category constants above.
type ExternalAPIError struct {
	Platform string
	Category string
	Reason   string
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s api error (%s): %s", e.Platform, e.Category, e.Reason)
}

// JobExecutionError is a queue-infrastructure failure. The job queue
// retries it per its attempt/backoff policy.
type JobExecutionError struct {
	Reason string
	Cause  error
}

func (e *JobExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("job execution error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("job execution error: %s", e.Reason)
}

func (e *JobExecutionError) Unwrap() error { return e.Cause }

func NewConfiguration(reason string) error { return &ConfigurationError{Reason: reason} }
func NewValidation(reason string) error    { return &ValidationError{Reason: reason} }
func NewEncryption(reason string) error    { return &EncryptionError{Reason: reason} }

func NewExternalAPI(platform, category, reason string) *ExternalAPIError {
	return &ExternalAPIError{Platform: platform, Category: category, Reason: reason}
}

func NewJobExecution(reason string, cause error) error {
	return &JobExecutionError{Reason: reason, Cause: cause}
}

func IsEncryption(err error) bool {
	var e *EncryptionError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
