package kiln

import (
	"fmt"
	"strings"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeInvalidSpec indicates a definition spec is structurally invalid
	CodeInvalidSpec = "INVALID_SPEC"

	// CodeUnsupportedSpec indicates CreateObject received a value it cannot build from
	CodeUnsupportedSpec = "UNSUPPORTED_SPEC"

	// CodeServiceNotFound indicates a name was not found in the container
	CodeServiceNotFound = "SERVICE_NOT_FOUND"

	// CodeClassNotFound indicates a class name is not in the class registry
	CodeClassNotFound = "CLASS_NOT_FOUND"

	// CodeServiceError indicates an error occurred while building a service
	CodeServiceError = "SERVICE_ERROR"

	// CodeCircularDependency indicates a build cycle was detected
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeTypeMismatch indicates a value could not be assigned to its target
	CodeTypeMismatch = "TYPE_MISMATCH"

	// CodeNotConstructible indicates Make was asked for a plain value
	CodeNotConstructible = "NOT_CONSTRUCTIBLE"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrInvalidSpec is returned for structurally invalid definition specs.
var ErrInvalidSpec = errs.NewError(CodeInvalidSpec, "invalid definition spec", nil)

// ErrUnsupportedSpec is returned when CreateObject cannot handle the given kind.
var ErrUnsupportedSpec = errs.NewError(CodeUnsupportedSpec, "unsupported configuration type", nil)

// ErrServiceNotFoundSentinel is a sentinel error for service not found (for error checking).
var ErrServiceNotFoundSentinel = errs.NewError(CodeServiceNotFound, "service not found", nil)

// ErrClassNotFoundSentinel is a sentinel error for unknown classes (for error checking).
var ErrClassNotFoundSentinel = errs.NewError(CodeClassNotFound, "class not found", nil)

// ErrCircularDependencySentinel is a sentinel error for circular dependency (for error checking).
var ErrCircularDependencySentinel = errs.NewError(CodeCircularDependency, "circular dependency", nil)

// ErrTypeMismatchSentinel is a sentinel error for type mismatch during assignment.
var ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

// ErrServiceErrorSentinel is a sentinel error for build failures.
var ErrServiceErrorSentinel = errs.NewError(CodeServiceError, "service error", nil)

// ErrNotConstructible is returned when Make targets a name registered as a plain value.
var ErrNotConstructible = errs.NewError(CodeNotConstructible, "not constructible", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// InvalidSpec creates a structural error for the definition at path.
func InvalidSpec(path, reason string) *errs.Error {
	return errs.NewError(
		CodeInvalidSpec,
		fmt.Sprintf("invalid definition spec '%s': %s", path, reason),
		nil,
	).WithContext("path", path).(*errs.Error)
}

// UnsupportedSpec creates an error naming the kind CreateObject could not handle.
func UnsupportedSpec(value any) *errs.Error {
	kind := fmt.Sprintf("%T", value)
	if value == nil {
		kind = "nil"
	}

	return errs.NewError(
		CodeUnsupportedSpec,
		"unsupported configuration type: "+kind,
		nil,
	).WithContext("kind", kind).(*errs.Error)
}

// ErrServiceNotFound creates an error for when a service is not found
func ErrServiceNotFound(serviceName string) *errs.Error {
	return errs.NewError(
		CodeServiceNotFound,
		fmt.Sprintf("service '%s' not found", serviceName),
		nil,
	).WithContext("service", serviceName).(*errs.Error)
}

// ErrClassNotFound creates an error for an unregistered class name
func ErrClassNotFound(class string) *errs.Error {
	return errs.NewError(
		CodeClassNotFound,
		fmt.Sprintf("class '%s' is not registered", class),
		nil,
	).WithContext("class", class).(*errs.Error)
}

// NewServiceError creates an error for service operations
func NewServiceError(serviceName, operation string, cause error) *errs.Error {
	return errs.NewError(
		CodeServiceError,
		fmt.Sprintf("service '%s' error during %s", serviceName, operation),
		cause,
	).WithContext("service", serviceName).
		WithContext("operation", operation).(*errs.Error)
}

// ErrCircularDependency creates an error for circular dependency detection
func ErrCircularDependency(cycle []string) *errs.Error {
	return errs.NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
		nil,
	).WithContext("cycle", cycle).(*errs.Error)
}

// ErrTypeMismatch creates an error for a value that cannot be assigned to target
func ErrTypeMismatch(target string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("'%s' type mismatch: got %T", target, actual),
		nil,
	).WithContext("target", target).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

func errNotConstructible(name string, value any) *errs.Error {
	return errs.NewError(
		CodeNotConstructible,
		fmt.Sprintf("service '%s' is a %T value and cannot be constructed", name, value),
		nil,
	).WithContext("service", name).(*errs.Error)
}
