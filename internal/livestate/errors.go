package livestate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorCategory classifies AWS API failures.
type ErrorCategory string

const (
	// ErrResourceNotFound is returned when a requested AWS resource doesn't exist
	ErrResourceNotFound ErrorCategory = "resource_not_found"

	// ErrPermissionDenied is returned when AWS API access is denied
	ErrPermissionDenied ErrorCategory = "permission_denied"

	// ErrThrottling is returned when AWS API throttles the request after retries
	ErrThrottling ErrorCategory = "request_throttled"

	// ErrConfigurationError is returned for credential or region problems
	ErrConfigurationError ErrorCategory = "configuration_error"

	// ErrInternalError is returned for anything else
	ErrInternalError ErrorCategory = "internal_error"
)

// Error is a categorized AWS failure.
type Error struct {
	Category     ErrorCategory
	ResourceType string
	ResourceID   string
	Message      string
	Underlying   error
}

func (e *Error) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s: %s [resource: %s/%s]", e.Category, e.Message, e.ResourceType, e.ResourceID)
	}
	if e.ResourceType != "" {
		return fmt.Sprintf("%s: %s [resource type: %s]", e.Category, e.Message, e.ResourceType)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsErrorCategory reports whether err carries the given category.
func IsErrorCategory(err error, category ErrorCategory) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}

// classify wraps err with a category derived from the API error code. Errors
// without an API code fall back to message matching.
func classify(err error, resourceType, resourceID string) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	category, message := categorize(err)
	return &Error{
		Category:     category,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Message:      message,
		Underlying:   err,
	}
}

func categorize(err error) (ErrorCategory, string) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case strings.HasSuffix(code, ".NotFound"), strings.HasSuffix(code, "NotFound"), strings.HasSuffix(code, "NotFoundFault"):
			return ErrResourceNotFound, "resource not found"
		case code == "UnauthorizedOperation", code == "AccessDenied", code == "AccessDeniedException", code == "AuthFailure":
			return ErrPermissionDenied, "access denied"
		case code == "RequestLimitExceeded", code == "Throttling", code == "ThrottlingException":
			return ErrThrottling, "request throttled"
		case code == "InvalidClientTokenId", code == "ExpiredToken", code == "SignatureDoesNotMatch":
			return ErrConfigurationError, "invalid AWS credentials"
		}
		return ErrInternalError, apiErr.ErrorMessage()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "failed to retrieve credentials"), strings.Contains(msg, "could not find region"),
		strings.Contains(msg, "no ec2 imds role found"):
		return ErrConfigurationError, "AWS SDK configuration error"
	default:
		return ErrInternalError, "internal error"
	}
}
